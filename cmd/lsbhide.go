package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/JustinTimperio/lsbhide/bitstream"
	"github.com/JustinTimperio/lsbhide/common"
	"github.com/JustinTimperio/lsbhide/encryption"
	"github.com/JustinTimperio/lsbhide/stego"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/term"
)

func main() {
	root := &ffcli.Command{
		Name:       "lsbhide",
		ShortUsage: "lsbhide <subcommand> [flags]",
		ShortHelp:  "Hide text or files in the least significant bits of PNG and BMP images",
		Subcommands: []*ffcli.Command{
			hideCommand(),
			revealCommand(),
			hideFileCommand(),
			revealFileCommand(),
			capacityCommand(),
			sampleCommand(),
		},
	}
	root.Exec = func(context.Context, []string) error {
		fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
		return flag.ErrHelp
	}

	err := root.ParseAndRun(context.Background(), os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ffOptions lets every flag come from LSBHIDE_* variables or a -config file.
func ffOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix("LSBHIDE"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	}
}

type payloadFlags struct {
	password     *string
	askPassword  *bool
	utf8         *bool
	lengthPrefix *bool
	argon2       *bool
	verbose      *bool
}

func registerPayloadFlags(fs *flag.FlagSet, hiding bool) *payloadFlags {
	fs.String("config", "", "config file (optional)")

	p := &payloadFlags{
		password:     fs.String("password", "", "encryption password"),
		askPassword:  fs.Bool("ask-password", false, "prompt for the password without echo"),
		lengthPrefix: fs.Bool("length-prefix", false, "use a length header instead of the end marker"),
		verbose:      fs.Bool("verbose", false, "print sizes"),
	}
	p.utf8 = fs.Bool("utf8", false, "encode text as UTF-8 instead of 8-bit characters")
	if hiding {
		p.argon2 = fs.Bool("argon2", false, "derive the key with salted Argon2id")
	}
	return p
}

func (p *payloadFlags) options() (stego.Options, error) {
	opts := stego.Options{Password: *p.password}

	if *p.askPassword {
		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return opts, fmt.Errorf("password read failed: %w", err)
		}
		opts.Password = string(pw)
	}

	if *p.utf8 {
		opts.Charset = bitstream.UTF8
	}
	if *p.lengthPrefix {
		opts.Protocol = bitstream.LengthPrefixProtocol
	}
	if p.argon2 != nil && *p.argon2 {
		opts.KDF = encryption.KDFArgon2id
	}
	return opts, nil
}

func (p *payloadFlags) reportCarrier(stdout, stderr io.Writer, path string, opts stego.Options) {
	if !*p.verbose {
		return
	}
	capacity, err := stego.CapacityOf(path)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", path, err)
		return
	}
	usable := capacity - opts.Overhead()/8
	if usable < 0 {
		usable = 0
	}
	fmt.Fprintln(stdout, "Carrier capacity:", common.HumanFileSize(int64(capacity)), "| usable:", common.HumanFileSize(int64(usable)))
}

func hideCommand() *ffcli.Command {
	fs := flag.NewFlagSet("lsbhide hide", flag.ExitOnError)

	var (
		carrier     = fs.String("image", "", "carrier png or bmp")
		output      = fs.String("output", "", "output image (png, bmp or tiff)")
		message     = fs.String("message", "", "message to hide")
		messageFile = fs.String("message-file", "", "read the message from this file")
		pf          = registerPayloadFlags(fs, true)
	)

	return &ffcli.Command{
		Name:       "hide",
		ShortUsage: "lsbhide hide -image in.png -output out.png -message text [flags]",
		ShortHelp:  "Hide a text message in an image",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec: func(_ context.Context, _ []string) error {
			if *carrier == "" {
				return errors.New("image is required")
			}
			if *output == "" {
				return errors.New("output is required")
			}

			text := *message
			if *messageFile != "" {
				b, err := os.ReadFile(*messageFile)
				if err != nil {
					return err
				}
				text = string(b)
			}
			if text == "" {
				return errors.New("message or message-file is required")
			}

			opts, err := pf.options()
			if err != nil {
				return err
			}
			pf.reportCarrier(os.Stdout, os.Stderr, *carrier, opts)

			if err := stego.HideMessageInImage(*carrier, text, *output, opts); err != nil {
				return err
			}
			fmt.Println("Message hidden in", *output)
			return nil
		},
	}
}

func revealCommand() *ffcli.Command {
	fs := flag.NewFlagSet("lsbhide reveal", flag.ExitOnError)

	var (
		carrier = fs.String("image", "", "stego image")
		pf      = registerPayloadFlags(fs, false)
	)

	return &ffcli.Command{
		Name:       "reveal",
		ShortUsage: "lsbhide reveal -image out.png [flags]",
		ShortHelp:  "Print a message hidden in an image",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec: func(_ context.Context, _ []string) error {
			if *carrier == "" {
				return errors.New("image is required")
			}

			opts, err := pf.options()
			if err != nil {
				return err
			}

			msg, err := stego.RevealMessageFromImage(*carrier, opts)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
}

func hideFileCommand() *ffcli.Command {
	fs := flag.NewFlagSet("lsbhide hide-file", flag.ExitOnError)

	var (
		carrier  = fs.String("image", "", "carrier png or bmp")
		input    = fs.String("file", "", "file to hide")
		output   = fs.String("output", "", "output image (png, bmp or tiff)")
		compress = fs.Bool("compress", false, "zstd-compress the file before hiding it")
		pf       = registerPayloadFlags(fs, true)
	)

	return &ffcli.Command{
		Name:       "hide-file",
		ShortUsage: "lsbhide hide-file -image in.png -file secret.pdf -output out.png [flags]",
		ShortHelp:  "Hide a file and its name in an image",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec: func(_ context.Context, _ []string) error {
			if *carrier == "" {
				return errors.New("image is required")
			}
			if *input == "" {
				return errors.New("file is required")
			}
			if *output == "" {
				return errors.New("output is required")
			}

			fi, err := os.Stat(*input)
			if err != nil {
				return err
			}

			opts, err := pf.options()
			if err != nil {
				return err
			}
			opts.Compress = *compress

			if *pf.verbose {
				fmt.Println("Size of input file:", common.HumanFileSize(fi.Size()))
			}
			pf.reportCarrier(os.Stdout, os.Stderr, *carrier, opts)

			if err := stego.HideFileInImage(*carrier, *input, *output, opts); err != nil {
				return err
			}
			fmt.Println(filepath.Base(*input), "hidden in", *output)
			return nil
		},
	}
}

func revealFileCommand() *ffcli.Command {
	fs := flag.NewFlagSet("lsbhide reveal-file", flag.ExitOnError)

	var (
		carrier = fs.String("image", "", "stego image")
		dir     = fs.String("dir", ".", "directory to write the recovered file into")
		pf      = registerPayloadFlags(fs, false)
	)

	return &ffcli.Command{
		Name:       "reveal-file",
		ShortUsage: "lsbhide reveal-file -image out.png -dir ./recovered [flags]",
		ShortHelp:  "Recover a file hidden in an image",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec: func(_ context.Context, _ []string) error {
			if *carrier == "" {
				return errors.New("image is required")
			}

			opts, err := pf.options()
			if err != nil {
				return err
			}

			path, err := stego.ExtractFileTo(*carrier, *dir, opts)
			if err != nil {
				return err
			}
			if *pf.verbose {
				if fi, err := os.Stat(path); err == nil {
					fmt.Println("Size of recovered file:", common.HumanFileSize(fi.Size()))
				}
			}
			fmt.Println("File saved to", path)
			return nil
		},
	}
}

type capacityResult struct {
	bytes int
	err   error
}

func capacityCommand() *ffcli.Command {
	fs := flag.NewFlagSet("lsbhide capacity", flag.ExitOnError)
	fs.String("config", "", "config file (optional)")
	workers := fs.Int("workers", 4, "number of images to inspect at once")

	return &ffcli.Command{
		Name:       "capacity",
		ShortUsage: "lsbhide capacity [-workers n] image [image...]",
		ShortHelp:  "Print how many bytes each image can hold",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec: func(_ context.Context, args []string) error {
			if len(args) == 0 {
				return errors.New("at least one image is required")
			}

			results := capacities(args, *workers)

			var failed int
			for _, path := range args {
				r := results[path]
				if r.err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, r.err)
					failed++
					continue
				}
				fmt.Printf("%s: %d bytes (%s)\n", path, r.bytes, common.HumanFileSize(int64(r.bytes)))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images could not be read", failed, len(args))
			}
			return nil
		},
	}
}

// capacities queries every path on a bounded pool of goroutines and
// collects the answers over a channel.
func capacities(paths []string, workers int) map[string]capacityResult {
	type message struct {
		path string
		capacityResult
	}

	var (
		wg  sync.WaitGroup
		sem = common.NewSemaphore(workers)
		out = make(chan message)
	)

	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem.Acquire()
			defer sem.Release()

			n, err := stego.CapacityOf(path)
			out <- message{path: path, capacityResult: capacityResult{bytes: n, err: err}}
		}(path)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make(map[string]capacityResult, len(paths))
	for m := range out {
		results[m.path] = m.capacityResult
	}
	return results
}

func sampleCommand() *ffcli.Command {
	fs := flag.NewFlagSet("lsbhide sample", flag.ExitOnError)
	fs.String("config", "", "config file (optional)")

	var (
		output = fs.String("output", filepath.Join("assets", "test_image.png"), "where to write the sample carrier")
		width  = fs.Int("width", stego.SampleWidth, "image width")
		height = fs.Int("height", stego.SampleHeight, "image height")
	)

	return &ffcli.Command{
		Name:       "sample",
		ShortUsage: "lsbhide sample [-output path] [-width n] [-height n]",
		ShortHelp:  "Create a plain white carrier image if none exists",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec: func(_ context.Context, _ []string) error {
			if *width <= 0 || *height <= 0 {
				return errors.New("width and height must be positive")
			}
			if err := stego.EnsureSampleCarrier(*output, *width, *height); err != nil {
				return err
			}
			fmt.Println("Sample carrier at", *output)
			return nil
		},
	}
}
