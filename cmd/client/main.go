// Command client drives the vendor registry API from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/atinyakov/venditori/internal/client"
	"github.com/atinyakov/venditori/internal/models"
)

var (
	version   string
	buildDate string
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// saveTo writes the body produced by fn to out, or to a file named after the
// server-suggested name in the current directory when out is empty.
func saveTo(out string, fn func(w io.Writer) (string, error)) (string, error) {
	dir := "."
	if out != "" {
		dir = filepath.Dir(out)
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	name, err := fn(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}

	if out == "" {
		out = filepath.Base(name)
	}
	if out == "" || out == "." {
		out = "download"
	}
	return out, os.Rename(tmp.Name(), out)
}

func run(ctx context.Context, c *client.Client, cmd string, args options) error {
	switch cmd {
	case "backup":
		path, err := saveTo(args.out, func(w io.Writer) (string, error) { return c.Backup(ctx, w) })
		if err != nil {
			return err
		}
		fmt.Println("Backup saved to", path)
	case "restore":
		f, err := os.Open(args.in)
		if err != nil {
			return err
		}
		defer f.Close()
		report, err := c.Restore(ctx, f)
		if report != nil {
			printJSON(report)
		}
		return err
	case "export":
		path, err := saveTo(args.out, func(w io.Writer) (string, error) {
			return c.Export(ctx, args.format, args.filter, w)
		})
		if err != nil {
			return err
		}
		fmt.Println("Export saved to", path)
	case "import":
		f, err := os.Open(args.in)
		if err != nil {
			return err
		}
		defer f.Close()
		res, err := c.Import(ctx, args.format, args.overwrite, f)
		if err != nil {
			return err
		}
		printJSON(res)
	case "search":
		vendors, err := c.Search(ctx, args.filter)
		if err != nil {
			return err
		}
		printJSON(vendors)
	case "get":
		v, err := c.GetVendor(ctx, args.id)
		if err != nil {
			return err
		}
		printJSON(v)
	case "insert":
		data, err := os.ReadFile(args.in)
		if err != nil {
			return err
		}
		var v models.Vendor
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("invalid vendor file: %w", err)
		}
		id, err := c.InsertVendor(ctx, v)
		if err != nil {
			return err
		}
		fmt.Println("Vendor saved with id", id)
	case "delete":
		if err := c.DeleteVendor(ctx, args.id); err != nil {
			return err
		}
		fmt.Println("Vendor deleted")
	case "sectors":
		sectors, err := c.Sectors(ctx)
		if err != nil {
			return err
		}
		printJSON(sectors)
	case "add-sector":
		if err := c.AddSector(ctx, args.sector); err != nil {
			return err
		}
		fmt.Println("Sector added")
	case "cities":
		cities, err := c.Cities(ctx)
		if err != nil {
			return err
		}
		printJSON(cities)
	case "stats":
		stats, err := c.Stats(ctx)
		if err != nil {
			return err
		}
		printJSON(stats)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return nil
}

type options struct {
	in, out   string
	format    string
	overwrite bool
	id        int64
	sector    string
	filter    models.VendorFilter
}

// main parses command-line flags and dispatches to the requested command.
func main() {
	var (
		cmd     string
		baseURL string
		token   string
		caFile  string
		timeout time.Duration
		showVer bool
		args    options
	)

	flag.StringVar(&cmd, "cmd", "", "command: backup | restore | export | import | search | get | insert | delete | sectors | add-sector | cities | stats")
	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&token, "token", os.Getenv("API_TOKEN"), "API bearer token")
	flag.StringVar(&caFile, "ca", "", "path to the server certificate to trust")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "request timeout")
	flag.BoolVar(&showVer, "version", false, "show build version and date")

	flag.StringVar(&args.in, "in", "", "input file for restore, import and insert")
	flag.StringVar(&args.out, "out", "", "output file for backup and export")
	flag.StringVar(&args.format, "format", "csv", "exchange format: csv | xlsx")
	flag.BoolVar(&args.overwrite, "overwrite", false, "import: update vendors whose email already exists")
	flag.Int64Var(&args.id, "id", 0, "vendor id for get and delete")
	flag.StringVar(&args.sector, "sector", "", "sector name for add-sector")
	flag.StringVar(&args.filter.Name, "nome", "", "filter: name substring")
	flag.StringVar(&args.filter.City, "citta", "", "filter: city")
	flag.StringVar(&args.filter.Sector, "settore", "", "filter: sector")
	flag.StringVar(&args.filter.VATRegistered, "partita-iva", "", "filter: VAT registered (Sì | No)")
	flag.StringVar(&args.filter.Enasarco, "enasarco", "", "filter: Enasarco agent (Sì | No)")
	flag.Parse()

	if showVer {
		fmt.Printf("Venditori Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	httpClient, err := client.NewHTTPClient(caFile, timeout)
	if err != nil {
		log.Fatal(err)
	}
	c := client.New(baseURL, token, httpClient)

	if err := run(context.Background(), c, cmd, args); err != nil {
		log.Fatal(err)
	}
}
