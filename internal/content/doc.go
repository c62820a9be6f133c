// Package content defines the image post pipeline: for each requested post it
// finds a trending topic, plans the post, generates an image, writes a
// caption and publishes the result.
//
// Iterations run strictly in order. A failed iteration is recorded as a
// failed post and the job moves on to the next one.
package content
