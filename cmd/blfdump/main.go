// Command blfdump decodes a Vector BLF capture and prints a one-line
// summary per record.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/vblf/blfdecode"
)

var (
	seek  = pflag.Int64("seek", 0, "virtual offset locator of a single record to decode and print (0 = walk the whole file)")
	count = pflag.Int("count", 0, "maximum number of records to print (0 = unlimited)")
)

func main() {
	pflag.Parse()
	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: blfdump [flags] <file.blf>")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(pflag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, "blfdump:", err)
		os.Exit(1)
	}
}

func run(path string) error {
	sess, err := blf.Open(path)
	if err != nil {
		return err
	}
	defer sess.Close()

	if *seek > 0 {
		rec, err := sess.ReadAt(*seek)
		if err != nil {
			return err
		}
		printRecord(rec)
		return nil
	}

	printed := 0
	for {
		rec, err := sess.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		printRecord(rec)
		printed++
		if *count > 0 && printed >= *count {
			break
		}
	}

	for _, iface := range sess.Interfaces() {
		fmt.Printf("# interface %d: %s (encap=%d channel=%d hw=%d)\n", iface.ID, iface.Name, iface.Encap, iface.Channel, iface.HWChannel)
	}
	return nil
}

func printRecord(rec *blf.PacketRecord) {
	fmt.Printf("%d.%09d\tvirt=%d\tif=%d\tdir=%d\tlen=%d/%d\n",
		rec.TimestampSec, rec.TimestampNsec, rec.VirtOffset, rec.InterfaceID, rec.Direction, rec.CaptureLen, rec.WireLen)
}
