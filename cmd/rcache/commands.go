package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/rediscache"
)

const nilReply = "(nil)"

// policyFlags are shared by the write commands.
type policyFlags struct {
	ttl     time.Duration
	sliding time.Duration
	until   string
}

func (p *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&p.ttl, "ttl", 0, "Expire this long after the write")
	cmd.Flags().DurationVar(&p.sliding, "sliding", 0, "Expire this long after the last write or read")
	cmd.Flags().StringVar(&p.until, "until", "", "Expire at this RFC3339 time")
	cmd.MarkFlagsMutuallyExclusive("ttl", "sliding", "until")
}

func (p *policyFlags) policy(now time.Time) (rediscache.Policy, error) {
	switch {
	case p.ttl != 0:
		if p.ttl < 0 {
			return rediscache.Policy{}, fmt.Errorf("invalid --ttl %s", p.ttl)
		}
		return rediscache.AbsoluteAt(now.Add(p.ttl)), nil
	case p.sliding != 0:
		return rediscache.Sliding(p.sliding), nil
	case p.until != "":
		t, err := time.Parse(time.RFC3339, p.until)
		if err != nil {
			return rediscache.Policy{}, fmt.Errorf("invalid --until: %w", err)
		}
		return rediscache.AbsoluteAt(t), nil
	default:
		return rediscache.NoExpiration, nil
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, found, err := a.cache.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), v, found)
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	var pf policyFlags
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value (JSON text, or a plain string)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.policy(time.Now())
			if err != nil {
				return err
			}
			if err := a.cache.Set(cmd.Context(), args[0], parseValue(args[1]), p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	pf.register(cmd)
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var pf policyFlags
	cmd := &cobra.Command{
		Use:   "add <key> <value>",
		Short: "Swap a value in and report whether the key was new",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.policy(time.Now())
			if err != nil {
				return err
			}
			added, err := a.cache.Add(cmd.Context(), args[0], parseValue(args[1]), p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), added)
			return nil
		},
	}
	pf.register(cmd)
	return cmd
}

func (a *app) swapCmd() *cobra.Command {
	var pf policyFlags
	cmd := &cobra.Command{
		Use:   "swap <key> <value>",
		Short: "Store a value and print the one it replaced",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.policy(time.Now())
			if err != nil {
				return err
			}
			prev, found, err := a.cache.AddOrGetExisting(cmd.Context(), args[0], parseValue(args[1]), p)
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), prev, found)
		},
	}
	pf.register(cmd)
	return cmd
}

func (a *app) delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Remove a key and print the value it held",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, found, err := a.cache.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), v, found)
		},
	}
}

func (a *app) existsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <key>",
		Short: "Report whether a key is present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.cache.Contains(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}

func (a *app) mgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mget <key>...",
		Short: "Print several values in one round trip",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.cache.GetValues(cmd.Context(), args)
			var batch *rediscache.BatchError
			if err != nil && !errors.As(err, &batch) {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, e := range entries {
				switch {
				case e.Err != nil:
					fmt.Fprintf(w, "%s\terror: %v\n", e.Key, e.Err)
				case !e.Found:
					fmt.Fprintf(w, "%s\t%s\n", e.Key, nilReply)
				default:
					s, rerr := render(e.Value)
					if rerr != nil {
						return rerr
					}
					fmt.Fprintf(w, "%s\t%s\n", e.Key, s)
				}
			}
			if ferr := w.Flush(); ferr != nil {
				return ferr
			}
			return err
		},
	}
}

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of keys in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.cache.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func (a *app) keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every key in the database, sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := a.cache.Keys(cmd.Context())
			if err != nil {
				return err
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every key in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("clear removes every key in db %d; pass --force", a.cache.DB())
			}
			n, err := a.cache.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm the wipe")
	return cmd
}

// parseValue keeps valid JSON structured so codecs see objects and numbers;
// anything else is stored as a string.
func parseValue(s string) any {
	if json.Valid([]byte(s)) {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

func printValue(w io.Writer, v any, found bool) error {
	if !found {
		_, err := fmt.Fprintln(w, nilReply)
		return err
	}
	s, err := render(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

// render prints v as JSON. CBOR and msgpack decode maps into any with
// non-string keys, which JSON cannot carry, so keys are stringified first.
func render(v any) (string, error) {
	b, err := json.Marshal(normalize(v))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []byte:
		return string(t)
	default:
		return v
	}
}
