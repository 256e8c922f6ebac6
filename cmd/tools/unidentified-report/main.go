package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Vodeneev/propline/internal/pkg/cleaners"
	"github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/models"
	"github.com/Vodeneev/propline/internal/pkg/storage"
)

func main() {
	var (
		configPath = flag.String("config", "configs/local.yaml", "Path to config file")
		action     = flag.String("action", "list", "Action: list, resolve")
		domain     = flag.String("domain", "", "Only this domain: team, subject, market, position")
		source     = flag.String("source", "", "Only this source (bookmaker)")
		league     = flag.String("league", "", "League of the entry to resolve")
		raw        = flag.String("raw", "", "Raw value of the entry to resolve")
		asJSON     = flag.Bool("json", false, "Print JSON instead of a table")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pg, err := storage.NewPostgresEntityStorage(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to open entity storage: %v", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch *action {
	case "list":
		entries, err := pg.LoadUnidentified(ctx)
		if err != nil {
			log.Fatalf("Failed to load unidentified entries: %v", err)
		}
		entries = filter(entries, models.Domain(strings.ToLower(*domain)), strings.ToLower(*source))
		if *asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(entries); err != nil {
				log.Fatalf("Failed to encode: %v", err)
			}
			return
		}
		printReport(os.Stdout, entries)
	case "resolve":
		if *domain == "" || *source == "" || *raw == "" {
			log.Fatalf("resolve needs -domain, -source and -raw")
		}
		if err := pg.DeleteUnidentified(ctx, models.Domain(strings.ToLower(*domain)), strings.ToLower(*source), cleaners.League(*league), strings.TrimSpace(*raw)); err != nil {
			log.Fatalf("Failed to resolve entry: %v", err)
		}
		fmt.Printf("Removed %s %q (%s, %s) from the report\n", *domain, *raw, *source, *league)
	default:
		log.Fatalf("Unknown action: %s. Use: list, resolve", *action)
	}
}

func filter(entries []models.UnidentifiedEntry, domain models.Domain, source string) []models.UnidentifiedEntry {
	out := entries[:0]
	for _, e := range entries {
		if domain != "" && e.Domain != domain {
			continue
		}
		if source != "" && e.Source != source {
			continue
		}
		out = append(out, e)
	}
	return out
}

// printReport writes one table per domain, most frequent sources first.
func printReport(w io.Writer, entries []models.UnidentifiedEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No unidentified entries")
		return
	}

	byDomain := make(map[models.Domain][]models.UnidentifiedEntry)
	for _, e := range entries {
		byDomain[e.Domain] = append(byDomain[e.Domain], e)
	}

	for _, d := range models.Domains {
		list := byDomain[d]
		if len(list) == 0 {
			continue
		}
		perSource := make(map[string]int)
		for _, e := range list {
			perSource[e.Source]++
		}
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if perSource[a.Source] != perSource[b.Source] {
				return perSource[a.Source] > perSource[b.Source]
			}
			if a.Source != b.Source {
				return a.Source < b.Source
			}
			if a.League != b.League {
				return a.League < b.League
			}
			return a.Raw < b.Raw
		})

		fmt.Fprintf(w, "=== %s (%d) ===\n", d, len(list))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tLEAGUE\tRAW\tFIRST SEEN")
		for _, e := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Source, e.League, e.Raw, e.FirstSeen.UTC().Format(time.RFC3339))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}
}
