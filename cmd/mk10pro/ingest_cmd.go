package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mk10pro/truthcore/pkg/crypto"
	"github.com/mk10pro/truthcore/pkg/engine"
	"github.com/mk10pro/truthcore/pkg/execctx"
)

// runIngestCmd implements `mk10pro ingest`: hashes every file in a
// directory into content addresses and writes an ingest manifest. The
// logical key a DAG source node uses to reference an asset is its file name
// within --dir; subdirectories are skipped, and there is no flag to choose
// a different key. With
// --store, asset bytes are also copied into a content-addressed store
// directory (one file per address, write-once) so a later `execute` or
// audit step needs no access to the original --dir.
func runIngestCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("ingest", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dir   string
		out   string
		store string
	)
	cmd.StringVar(&dir, "dir", "", "directory of files to ingest (REQUIRED)")
	cmd.StringVar(&out, "out", "", "output path for the ingest manifest JSON (REQUIRED)")
	cmd.StringVar(&store, "store", "", "optional content-addressed store directory to copy asset bytes into")

	if err := cmd.Parse(args); err != nil {
		return exitUserError
	}
	if dir == "" || out == "" {
		fmt.Fprintln(stderr, "error: --dir and --out are required")
		return exitUserError
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(stderr, "error: read %s: %v\n", dir, err)
		return exitInternalErr
	}

	cas := engine.NewStore()
	var assets []execctx.IngestAsset
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		asset, err := hashFile(path, entry.Name())
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitInternalErr
		}
		assets = append(assets, asset)

		if store != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(stderr, "error: read %s: %v\n", path, err)
				return exitInternalErr
			}
			if err := cas.Put(asset.ContentAddress, raw); err != nil {
				fmt.Fprintf(stderr, "error: store %s: %v\n", path, err)
				return exitInternalErr
			}
		}
	}

	if store != "" {
		if err := os.MkdirAll(store, 0o755); err != nil {
			fmt.Fprintf(stderr, "error: create store %s: %v\n", store, err)
			return exitInternalErr
		}
		for _, a := range assets {
			raw, ok := cas.Get(a.ContentAddress)
			if !ok {
				continue
			}
			dst := filepath.Join(store, a.ContentAddress)
			if err := os.WriteFile(dst, raw, 0o644); err != nil {
				fmt.Fprintf(stderr, "error: write %s: %v\n", dst, err)
				return exitInternalErr
			}
		}
	}

	data, err := json.MarshalIndent(assets, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "error: marshal manifest: %v\n", err)
		return exitInternalErr
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Fprintf(stderr, "error: write %s: %v\n", out, err)
		return exitInternalErr
	}

	fmt.Fprintf(stdout, "ingested %d asset(s) into %s\n", len(assets), out)
	return exitSuccess
}

func hashFile(path, key string) (execctx.IngestAsset, error) {
	f, err := os.Open(path)
	if err != nil {
		return execctx.IngestAsset{}, &crypto.IoError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return execctx.IngestAsset{}, &crypto.IoError{Path: path, Err: err}
	}

	addr, err := crypto.ContentAddress(f, "")
	if err != nil {
		return execctx.IngestAsset{}, fmt.Errorf("hash %s: %w", path, err)
	}

	return execctx.IngestAsset{
		Key:            key,
		ContentAddress: addr,
		Path:           path,
		Hash:           addr,
		Size:           info.Size(),
	}, nil
}
