// Command chatnorm sends one prompt to a configured chat completions provider
// and prints the normalized response as JSON.
//
//	chatnorm --provider compat --base-url http://localhost:8000/v1 --stream "Why is the sky blue?"
//	echo "hi" | chatnorm -f chatnorm.yaml
//
// The exit status is 1 when the response carries finish_reason "error".
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
