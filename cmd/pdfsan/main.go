// Command pdfsan sanitizes, scans, encrypts and decrypts PDF files.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"pdfsan/contentstream"
	"pdfsan/detect"
	"pdfsan/pipeline"
	"pdfsan/reader"
	"pdfsan/report"
	"pdfsan/rewrite"
	"pdfsan/security"
	"pdfsan/writer"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: pdfsan <command> [flags] <input>

commands:
  scan      scan for forensic artifacts and report findings
  clean     sanitize and rewrite the document
  encrypt   encrypt strings and streams
  decrypt   reverse a previous encrypt run
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "scan":
		err = runScan(os.Args[2:])
	case "clean":
		err = runClean(os.Args[2:])
	case "encrypt":
		err = runCrypt(os.Args[2:], true)
	case "decrypt":
		err = runCrypt(os.Args[2:], false)
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfsan: %v\n", err)
		os.Exit(1)
	}
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	htmlOut := fs.Bool("html", false, "render the report as HTML")
	threshold := fs.Float64("threshold", 0, "minimum finding confidence")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	doc, err := reader.ReadDocument(data)
	if err != nil {
		return err
	}

	cfg := detect.DefaultConfig()
	cfg.ConfidenceThreshold = *threshold
	registry := detect.NewDefaultRegistry(cfg, nil, nil)
	findings, issues, err := registry.ScanDocument(context.Background(), doc)
	if err != nil {
		return err
	}

	summary := report.Summary{
		Title: "Scan report: " + fs.Arg(0),
		Stats: map[string]int64{
			"objects":  int64(len(doc.Objects)),
			"findings": int64(len(findings)),
			"issues":   int64(len(issues)),
		},
		Findings: findings,
		Issues:   issues,
	}
	if *htmlOut {
		html, err := report.RenderHTML(summary)
		if err != nil {
			return err
		}
		os.Stdout.Write(html)
		return nil
	}
	os.Stdout.Write(report.RenderMarkdown(summary))
	return nil
}

func runClean(args []string) error {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	out := fs.String("o", "", "output file (default: <input>.clean.pdf)")
	preserve := fs.Bool("preserve", false, "keep rewrites that change rendering out of the run")
	removeOps := fs.String("remove-ops", "", "comma-separated content operators to drop")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}
	in := fs.Arg(0)
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	doc, err := reader.ReadDocument(data)
	if err != nil {
		return err
	}

	var ops []string
	if *removeOps != "" {
		ops = strings.Split(*removeOps, ",")
	}
	p := pipeline.New(pipeline.Options{
		Cleaning: pipeline.CleaningConfig{
			CleanStreams:          true,
			CleanBinary:           true,
			CleanContent:          true,
			CleanStructure:        true,
			RemoveMetadata:        true,
			RemoveHidden:          true,
			PreserveFunctionality: *preserve,
		},
		Rewrite: rewrite.Config{
			PruneUnreachable:   true,
			DeduplicateObjects: true,
			MergeStreams:       true,
			Compact:            true,
			RebuildXRef:        true,
		},
		Content: contentstream.ProcessingConfig{
			RemoveOperators:       ops,
			RemoveComments:        true,
			CollapseGraphicsState: true,
			MergeTextShows:        true,
		},
	})

	res, err := p.Run(context.Background(), doc)
	if err != nil {
		return err
	}
	for _, issue := range res.Issues {
		fmt.Fprintln(os.Stderr, issue)
	}
	fmt.Fprintf(os.Stderr, "removed %d objects, %d keys, %d bytes in %s\n",
		res.Stats.ObjectsRemoved, res.KeysRemoved, res.BytesRemoved, res.Duration)

	target := *out
	if target == "" {
		target = strings.TrimSuffix(in, ".pdf") + ".clean.pdf"
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()
	return writer.WriteDocument(f, doc)
}

func runCrypt(args []string, encrypt bool) error {
	fs := flag.NewFlagSet("crypt", flag.ExitOnError)
	out := fs.String("o", "", "output file")
	method := fs.String("method", "aes", "cipher: rc4, aes or identity")
	bits := fs.Int("bits", 256, "key length in bits")
	seedHex := fs.String("seed", "", "hex seed from a previous encrypt run")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}
	in := fs.Arg(0)
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	doc, err := reader.ReadDocument(data)
	if err != nil {
		return err
	}

	var m security.Method
	revision := 4
	switch *method {
	case "rc4":
		m = security.MethodRC4
		revision = 3
		if *bits == 40 {
			revision = 2
		}
	case "aes":
		m = security.MethodAES
		if *bits == 256 {
			revision = 6
		}
	case "identity":
		m = security.MethodIdentity
	default:
		return fmt.Errorf("unknown method %q", *method)
	}
	cfg := security.Config{Method: m, KeyLength: *bits, Revision: revision}
	var handler *security.Handler
	switch {
	case *seedHex != "":
		decoded, decErr := hex.DecodeString(*seedHex)
		if decErr != nil || len(decoded) != security.SeedSize {
			return fmt.Errorf("-seed must be %d hex-encoded bytes", security.SeedSize)
		}
		var seed [security.SeedSize]byte
		copy(seed[:], decoded)
		handler, err = security.NewHandlerWithSeed(cfg, seed)
	case !encrypt && m != security.MethodIdentity:
		return fmt.Errorf("decrypt requires the -seed from the encrypt run")
	default:
		handler, err = security.NewHandler(cfg)
	}
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Options{Crypto: handler})
	if encrypt {
		err = p.Encrypt(context.Background(), doc)
	} else {
		err = p.Decrypt(context.Background(), doc)
	}
	if err != nil {
		return err
	}
	if encrypt && m != security.MethodIdentity {
		seed := handler.Seed()
		fmt.Fprintf(os.Stderr, "seed: %s\n", hex.EncodeToString(seed[:]))
	}

	target := *out
	if target == "" {
		suffix := ".enc.pdf"
		if !encrypt {
			suffix = ".dec.pdf"
		}
		target = strings.TrimSuffix(in, ".pdf") + suffix
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()
	return writer.WriteDocument(f, doc)
}
