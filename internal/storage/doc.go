// Package storage writes generated media (post images, scene videos) and
// returns the public URL other collaborators receive.
//
// Two backends exist: a local directory, optionally fronted by a static file
// server through public_base_url, and any S3-compatible bucket (AWS S3,
// Cloudflare R2, MinIO) through the AWS SDK.
package storage
