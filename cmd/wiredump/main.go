// Command wiredump decodes protocol buffer wire data without a schema and
// prints the field structure.
//
// Usage:
//
//	wiredump dump [options] [<file>]
//	wiredump version
//
// Dump Command:
//
//	Decode a wire-format stream and print one line per field. Reads from
//	stdin when no file is given.
//
//	Options:
//	  -frame string   Stream framing: none, base128, fixed32, fixed32be (default "none")
//	  -header         Expect a field header before each base128 length prefix
//	  -max-depth int  Maximum nesting depth to descend (default 100)
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blockberries/wirestream/pkg/wirestream"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "dump", "d":
		cmdDump(os.Args[2:])
	case "version":
		fmt.Printf("wiredump version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `wiredump - schema-less protocol buffer wire decoder

Usage:
  wiredump dump [options] [<file>]
  wiredump version

Run 'wiredump dump -h' for dump options.`)
}

func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	frame := fs.String("frame", "none", "stream framing: none, base128, fixed32, fixed32be")
	header := fs.Bool("header", false, "expect a field header before each base128 length prefix")
	maxDepth := fs.Int("max-depth", 100, "maximum nesting depth to descend")
	fs.Parse(args)

	style, err := parseFrame(*frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	source := io.Reader(os.Stdin)
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		source = f
	}

	opts := wirestream.DefaultOptions
	opts.Limits.MaxDepth = *maxDepth

	for msgIndex := 0; ; msgIndex++ {
		r, ok, err := wirestream.ReadNextMessage(source, nil, opts, *header, style)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			return
		}
		if style != wirestream.PrefixNone {
			fmt.Printf("message %d:\n", msgIndex)
		}
		if err := dumpFields(os.Stdout, r, 0); err != nil {
			r.Release()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		r.Release()
		if style == wirestream.PrefixNone {
			return
		}
	}
}

func parseFrame(name string) (wirestream.PrefixStyle, error) {
	switch name {
	case "none":
		return wirestream.PrefixNone, nil
	case "base128":
		return wirestream.PrefixBase128, nil
	case "fixed32":
		return wirestream.PrefixFixed32, nil
	case "fixed32be":
		return wirestream.PrefixFixed32BigEndian, nil
	default:
		return 0, fmt.Errorf("unknown framing %q", name)
	}
}

// dumpFields walks every field at the reader's current level, printing one
// line per field and descending into length-delimited payloads that parse
// as nested messages.
func dumpFields(out io.Writer, r *wirestream.Reader, indent int) error {
	pad := strings.Repeat("  ", indent)
	for r.ReadFieldHeader() > 0 {
		field := r.FieldNumber()
		switch r.WireType() {
		case wirestream.WireVariant:
			v := r.ReadUint64()
			fmt.Fprintf(out, "%s%d: varint %d\n", pad, field, v)
		case wirestream.WireFixed32:
			v := r.ReadUint32()
			fmt.Fprintf(out, "%s%d: fixed32 %d (0x%08x)\n", pad, field, v, v)
		case wirestream.WireFixed64:
			v := r.ReadUint64()
			fmt.Fprintf(out, "%s%d: fixed64 %d (0x%016x)\n", pad, field, v, v)
		case wirestream.WireString:
			b := r.ReadBytes()
			if r.Err() != nil {
				break
			}
			if nested, ok := tryNested(b, r); ok {
				fmt.Fprintf(out, "%s%d: message (%d bytes)\n", pad, field, len(b))
				fmt.Fprint(out, nested)
			} else if isPrintable(b) {
				fmt.Fprintf(out, "%s%d: string %q\n", pad, field, b)
			} else {
				fmt.Fprintf(out, "%s%d: bytes (%d) %x\n", pad, field, len(b), truncate(b, 32))
			}
		case wirestream.WireStartGroup:
			fmt.Fprintf(out, "%s%d: group\n", pad, field)
			tok := r.StartSubItem()
			if err := dumpFields(out, r, indent+1); err != nil {
				return err
			}
			r.EndSubItem(tok)
		default:
			r.SkipField()
		}
		if r.Err() != nil {
			return r.Err()
		}
	}
	return r.Err()
}

// tryNested speculatively decodes a length-delimited payload as a message,
// rendering it only when every byte parses cleanly.
func tryNested(data []byte, parent *wirestream.Reader) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	var sb strings.Builder
	r, err := wirestream.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return "", false
	}
	defer r.Release()
	if err := dumpFields(&sb, r, parent.Depth()+1); err != nil {
		return "", false
	}
	if !r.HitNaturalEnd() {
		return "", false
	}
	return sb.String(), true
}

func isPrintable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return len(b) > 0
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
