package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/adobe/aio-lib-state-go/internal/config"
	"github.com/adobe/aio-lib-state-go/pkg/state"
)

var (
	ttlFlag = &cli.IntFlag{
		Name:  "ttl",
		Usage: "time to live in seconds, 0 keeps the service default",
	}
	matchFlag = &cli.StringFlag{
		Name:  "match",
		Usage: "glob pattern over keys",
	}
	countHintFlag = &cli.IntFlag{
		Name:  "count-hint",
		Usage: "approximate page size in [100,1000]",
	}
)

var commandGet = &cli.Command{
	Name:      "get",
	Usage:     "print the value of a key",
	ArgsUsage: "<key>",
	Action: func(ctx *cli.Context) error {
		key, err := requireArg(ctx, 0, "key")
		if err != nil {
			return err
		}
		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		res, err := client.Get(ctx.Context, key)
		if err != nil {
			return err
		}
		if res == nil {
			return fmt.Errorf("key %q not found", key)
		}
		if ctx.Bool(jsonFlag.Name) {
			return printJSON(ctx.App.Writer, map[string]string{"value": res.Value, "expiration": res.Expiration})
		}
		fmt.Fprintln(ctx.App.Writer, res.Value)
		return nil
	},
}

var commandPut = &cli.Command{
	Name:      "put",
	Usage:     "store a value, read from stdin when <value> is -",
	ArgsUsage: "<key> <value>",
	Flags:     []cli.Flag{ttlFlag},
	Action: func(ctx *cli.Context) error {
		key, err := requireArg(ctx, 0, "key")
		if err != nil {
			return err
		}
		value, err := requireArg(ctx, 1, "value")
		if err != nil {
			return err
		}
		if value == "-" {
			data, err := io.ReadAll(io.LimitReader(os.Stdin, state.MaxValueSize+1))
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			value = string(data)
		}
		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		stored, err := client.Put(ctx.Context, key, value, &state.PutOptions{TTL: ctx.Int(ttlFlag.Name)})
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, stored)
		return nil
	},
}

var commandDelete = &cli.Command{
	Name:      "delete",
	Usage:     "delete a key",
	ArgsUsage: "<key>",
	Action: func(ctx *cli.Context) error {
		key, err := requireArg(ctx, 0, "key")
		if err != nil {
			return err
		}
		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		deleted, err := client.Delete(ctx.Context, key)
		if err != nil {
			return err
		}
		if deleted == "" {
			return fmt.Errorf("key %q not found", key)
		}
		fmt.Fprintln(ctx.App.Writer, deleted)
		return nil
	},
}

var commandDeleteAll = &cli.Command{
	Name:  "delete-all",
	Usage: "delete every key matching --match",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: matchFlag.Name, Usage: matchFlag.Usage + ", \"*\" deletes everything", Required: true},
	},
	Action: func(ctx *cli.Context) error {
		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		res, err := client.DeleteAll(ctx.Context, state.DeleteAllOptions{Match: ctx.String(matchFlag.Name)})
		if err != nil {
			return err
		}
		if ctx.Bool(jsonFlag.Name) {
			return printJSON(ctx.App.Writer, res)
		}
		fmt.Fprintf(ctx.App.Writer, "deleted %d keys\n", res.Keys)
		return nil
	},
}

var commandAny = &cli.Command{
	Name:  "any",
	Usage: "report whether the container holds any key",
	Action: func(ctx *cli.Context) error {
		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		found, err := client.Any(ctx.Context)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, strconv.FormatBool(found))
		return nil
	},
}

var commandStats = &cli.Command{
	Name:  "stats",
	Usage: "print key and byte counts of the container",
	Action: func(ctx *cli.Context) error {
		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		stats, err := client.Stats(ctx.Context)
		if err != nil {
			return err
		}
		if ctx.Bool(jsonFlag.Name) {
			return printJSON(ctx.App.Writer, stats)
		}
		table := tablewriter.NewWriter(ctx.App.Writer)
		table.SetHeader([]string{"Namespace", "Region", "Keys", "Key bytes", "Value bytes"})
		table.Append([]string{
			client.Namespace(),
			client.Region(),
			strconv.FormatInt(stats.Keys, 10),
			strconv.FormatInt(stats.BytesKeys, 10),
			strconv.FormatInt(stats.BytesValues, 10),
		})
		table.Render()
		return nil
	},
}

var commandList = &cli.Command{
	Name:  "list",
	Usage: "list keys, one per line",
	Flags: []cli.Flag{matchFlag, countHintFlag},
	Action: func(ctx *cli.Context) error {
		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		it, err := client.List(ctx.Context, &state.ListOptions{
			Match:     ctx.String(matchFlag.Name),
			CountHint: ctx.Int(countHintFlag.Name),
		})
		if err != nil {
			return err
		}
		if ctx.Bool(jsonFlag.Name) {
			keys, err := it.All()
			if err != nil {
				return err
			}
			return printJSON(ctx.App.Writer, keys)
		}
		for keys, err := range it.Pages() {
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(ctx.App.Writer, k)
			}
		}
		return nil
	},
}

// newClient loads the config file and environment, applies explicit global
// flags on top, and initialises a client.
func newClient(ctx *cli.Context) (*state.Client, error) {
	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	overrides := map[string]*string{
		namespaceFlag.Name: &cfg.Namespace,
		apiKeyFlag.Name:    &cfg.APIKey,
		regionFlag.Name:    &cfg.Region,
		envFlag.Name:       &cfg.Env,
		endpointFlag.Name:  &cfg.Endpoint,
		logLevelFlag.Name:  &cfg.Log.Level,
	}
	for name, dst := range overrides {
		if ctx.IsSet(name) {
			*dst = ctx.String(name)
		}
	}
	return state.Init(ctx.Context, cfg.StateConfig())
}

func requireArg(ctx *cli.Context, i int, name string) (string, error) {
	if ctx.NArg() <= i {
		return "", fmt.Errorf("missing <%s> argument", name)
	}
	return ctx.Args().Get(i), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
