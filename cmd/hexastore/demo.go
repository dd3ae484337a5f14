package main

import (
	"fmt"

	"github.com/aleksaelezovic/hexastore/pkg/store"
	"github.com/aleksaelezovic/hexastore/pkg/triple"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Inserts sample data and runs a few queries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "=== Hexastore Demo ===")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Inserting sample data...")

		triples := []triple.Triple{
			triple.NewTriple("alice", "name", "Alice"),
			triple.NewTriple("alice", "age", "30"),
			triple.NewTriple("alice", "knows", "bob"),

			triple.NewTriple("bob", "name", "Bob"),
			triple.NewTriple("bob", "age", "25"),
			triple.NewTriple("bob", "knows", "carol"),

			triple.NewTriple("carol", "name", "Carol"),
			triple.NewTriple("carol", "age", "28"),
			triple.NewTriple("carol", "knows", "bob"),
		}

		for _, t := range triples {
			if err := tripleStore.Put(ctx, t); err != nil {
				return err
			}
			fmt.Fprintf(out, "  ✓ %s\n", t)
		}

		count, err := tripleStore.Count(ctx, store.NewCriteria().Build())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nTotal triples stored: %d\n", count)

		queries := []struct {
			title    string
			criteria store.Criteria
		}{
			{"Who knows bob?", store.NewCriteria().WithPredicate("knows").WithObject("bob").Build()},
			{"Everything about carol", store.NewCriteria().WithSubject("carol").Build()},
			{"Every age", store.NewCriteria().WithPredicate("age").Build()},
			{"Anything pointing at bob", store.NewCriteria().WithObject("bob").Build()},
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "=== Querying Data ===")
		for _, q := range queries {
			ordering := triple.Hexagon[q.criteria.Plan()]
			fmt.Fprintf(out, "\n%s %s (index %s)\n", q.title, q.criteria, ordering)

			it, err := tripleStore.Get(ctx, q.criteria)
			if err != nil {
				return err
			}
			n, err := writeTriples(out, it)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Found %d results\n", n)
		}

		fmt.Fprintln(out, "\n=== Demo Complete ===")
		return nil
	},
}
