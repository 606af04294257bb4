// Command blobtrack tracks indistinguishable moving objects through a
// sequence of binary frames and stores one record per track per frame.
package main

func main() {
	Execute()
}
