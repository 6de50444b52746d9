// Command oceangrid builds the ocean grid into a Badger store and answers
// box, pentad, neighbor, and observation lookups against it.
//
// Usage:
//
//	oceangrid build --store /var/lib/ocean-grid --land ne_110m_land.shp --side-m 100000
//	oceangrid box --store /var/lib/ocean-grid -- -150.25 20.5
//	oceangrid pentad 1998-03-01
//	oceangrid neighbors 88_31 --radius-km 300
//	oceangrid validate --samples 100000
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: failed to read .env:", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
