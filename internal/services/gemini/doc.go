// Package gemini generates post images (Imagen) and scene videos (Veo)
// through google.golang.org/genai.
//
// Scene video generation is a long-running operation. The client polls it on
// a fixed interval for a bounded number of attempts and reports exhaustion as
// a services.ErrTimeout failure. A cancelled context is honoured between
// polls, never inside an in-flight request.
package gemini
