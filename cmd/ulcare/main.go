// Package main provides the entry point for the Ulcare CLI.
//
// Ulcare classifies the severity of a diabetic foot ulcer from a photo with
// an on-device model and prints the matching clinical guidance.
//
// Usage:
//
//	ulcare identity set --name "Budi" --gender L
//	ulcare classify foot.jpg
//	ulcare classify --json --batch 4 photos/*.jpg
//
// See --help for all available options.
package main

// main is the entry point for Ulcare.
func main() {
	Execute()
}
