// Package keys loads operator secrets.
//
// The key file is JSON (comments and trailing commas tolerated):
//
//	{
//	  "IPFS_KEY": "<nft.storage bearer token>",
//	  "ACCOUNT_MNEMONIC": "<25 word algorand mnemonic>"
//	}
//
// Secrets never appear in logs or in the run manifest.
package keys
