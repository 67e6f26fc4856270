package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/arbor/pkg/events"
	"github.com/go-go-golems/arbor/pkg/server"
	"github.com/go-go-golems/arbor/pkg/store"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve threads over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.NewServer(s,
				server.WithPublisher(events.NewPublisherManager()),
				server.WithLogger(log.Logger),
			)
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8123", "listen address")
	return cmd
}

func newSchemaCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the persisted thread format",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := store.ThreadStateSchema()

			switch format {
			case "json":
				data, err := json.MarshalIndent(schema, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			case "yaml":
				// go through JSON first so the schema's custom marshaling applies
				data, err := json.Marshal(schema)
				if err != nil {
					return err
				}
				var v interface{}
				if err := json.Unmarshal(data, &v); err != nil {
					return err
				}
				out, err := yaml.Marshal(v)
				if err != nil {
					return err
				}
				fmt.Print(string(out))
			default:
				return errors.Errorf("unknown format %s (want json or yaml)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format (json or yaml)")
	return cmd
}
