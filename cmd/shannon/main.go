// Command shannon analyzes the entropy of texts and joint distributions and
// builds Shannon-Fano codes.
//
// Usage:
//
//	shannon text  [-text s | -corpus texts.json -variant variant1|variant3|both]
//	shannon url   [-top 30] url...
//	shannon joint [-rows 9 -cols 9 -seed 1337 | -matrix '[[...]]']
//	shannon code  [-n 12] [-uniform] [-message "a1 a3"] [-text s] [-save f] [-load f]
//	shannon gen   [-lang uk|de|en] [-length 1500] [-seed 1]
//	shannon serve [-addr :8080]
//
// Reports are written to stdout and to the file named by -out, which is
// truncated when the command starts. Charts are written into -img.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
