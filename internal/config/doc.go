// Package config loads the scale and gateway settings.
//
// Settings come from a YAML file, then from the environment. A .env file,
// when present, is loaded into the environment first; variables already
// set win over the .env file, and the environment wins over the YAML
// file. Every omitted field takes its default.
//
// Recognized variables:
//
//	SMARTSCALE_MAC             device identity sent to the server
//	SMARTSCALE_GATEWAY_URL     base URL of the nutrition server
//	SMARTSCALE_ARCHIVE_BUCKET  S3 bucket for delivered documents
package config
