//go:build linux

package main

import "os"

func main() {
	os.Exit(start(func(fn func()) { fn() }))
}
