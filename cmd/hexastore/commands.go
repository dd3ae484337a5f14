package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aleksaelezovic/hexastore/pkg/store"
	"github.com/aleksaelezovic/hexastore/pkg/triple"
	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [subject] [predicate] [object]",
		Short: "Stores a triple",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := triple.NewTriple(args[0], args[1], args[2])
			if err := tripleStore.Put(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", t)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get",
		Short: "Prints the triples matching the given fields, tab separated",
		Long: `Prints the triples matching the given fields, tab separated.
Without any field flag every triple is printed (a full index scan).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := tripleStore.Get(cmd.Context(), criteriaFromFlags(cmd))
			if err != nil {
				return err
			}
			_, err = writeTriples(cmd.OutOrStdout(), it)
			return err
		},
	}
	countCmd = &cobra.Command{
		Use:   "count",
		Short: "Counts the triples matching the given fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := tripleStore.Count(cmd.Context(), criteriaFromFlags(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), count)
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints the number of stored triples and the store metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := tripleStore.Count(cmd.Context(), store.NewCriteria().Build())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# triples %d\n", count)
			store.WriteMetrics(w)
			return nil
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [subject] [predicate] [object]",
		Short: "Removes a triple from all indexes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := triple.NewTriple(args[0], args[1], args[2])
			if err := tripleStore.Delete(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", t)
			return nil
		},
	}
	loadCmd = &cobra.Command{
		Use:   "load [file]",
		Short: "Loads tab separated triples from a file, or stdin with -",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			workers, _ := cmd.Flags().GetInt("workers")
			batchSize, _ := cmd.Flags().GetInt("batch")

			n, err := load(cmd.Context(), tripleStore, r, workers, batchSize)
			if err != nil {
				return err
			}
			if err := tripleStore.Sync(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d triples\n", n)
			return nil
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{getCmd, countCmd} {
		cmd.Flags().String("subject", "", "required subject")
		cmd.Flags().String("predicate", "", "required predicate")
		cmd.Flags().String("object", "", "required object")
	}

	loadCmd.Flags().Int("workers", 4, "number of concurrent writers")
	loadCmd.Flags().Int("batch", 256, "triples per atomic write")
}

// criteriaFromFlags binds every field flag that was given, even when empty
func criteriaFromFlags(cmd *cobra.Command) store.Criteria {
	b := store.NewCriteria()
	if cmd.Flags().Changed("subject") {
		v, _ := cmd.Flags().GetString("subject")
		b = b.WithSubject(v)
	}
	if cmd.Flags().Changed("predicate") {
		v, _ := cmd.Flags().GetString("predicate")
		b = b.WithPredicate(v)
	}
	if cmd.Flags().Changed("object") {
		v, _ := cmd.Flags().GetString("object")
		b = b.WithObject(v)
	}
	return b.Build()
}

// writeTriples drains it into w, one tab separated triple per line
func writeTriples(w io.Writer, it store.TripleIterator) (int, error) {
	defer it.Close()

	n := 0
	for it.Next() {
		t, err := it.Triple()
		if err != nil {
			return n, err
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", t.Subject, t.Predicate, t.Object); err != nil {
			return n, err
		}
		n++
	}
	return n, it.Err()
}
