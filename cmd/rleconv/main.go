// Command rleconv batch-converts between the Utah RLE image format
// and the standard raster formats the Go image ecosystem understands.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Encode EncodeCmd `cmd:"" help:"Convert standard raster images in a folder to Utah RLE"`
	Decode DecodeCmd `cmd:"" help:"Convert Utah RLE images in a folder to a standard raster format"`
}

func main() {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("rleconv"),
		kong.Description("Batch conversion between Utah RLE and standard raster image formats."))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := kctx.Run(); err != nil {
		kctx.FatalIfErrorf(err)
	}
}
