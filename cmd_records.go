package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// keyArgs splits "TYPE [UID]" positional arguments.
func keyArgs(args []string) (string, string) {
	if len(args) > 1 {
		return args[0], args[1]
	}
	return args[0], ""
}

func (a *app) existsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists TYPE [UID]",
		Short: "Report whether a record exists",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ok, err := s.Exists(keyArgs(args))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get TYPE [UID]",
		Short: "Print a record as JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			typeName, uid := keyArgs(args)
			var doc json.RawMessage
			if !s.Load(typeName, uid, &doc) {
				return fmt.Errorf("%s: not found", recordLabel(typeName, uid))
			}
			var out bytes.Buffer
			if err := json.Indent(&out, doc, "", "  "); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return nil
		},
	}
}

func (a *app) putCmd() *cobra.Command {
	var (
		file   string
		newUID bool
	)
	cmd := &cobra.Command{
		Use:   "put TYPE [UID]",
		Short: "Save a JSON document read from --file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typeName, uid := keyArgs(args)
			if newUID {
				if uid != "" {
					return errors.New("--new-uid cannot be combined with a UID argument")
				}
				uid = uuid.NewString()
			}

			var r io.Reader = cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			doc, err := readDocument(r)
			if err != nil {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Save(typeName, uid, doc); err != nil {
				return err
			}
			if newUID {
				fmt.Fprintln(cmd.OutOrStdout(), uid)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the document from this file instead of stdin")
	cmd.Flags().BoolVar(&newUID, "new-uid", false, "store under a freshly generated uid and print it")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm TYPE [UID]",
		Short: "Delete a record and report whether it existed",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			deleted, err := s.Delete(keyArgs(args))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), deleted)
			return nil
		},
	}
}

func (a *app) lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls TYPE",
		Short: "List the uids stored under a type name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			uids, err := s.List(args[0])
			if err != nil {
				return err
			}
			for _, uid := range uids {
				if uid == "" {
					uid = "(default)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), uid)
			}
			return nil
		},
	}
}

// readDocument reads exactly one JSON document, keeping it byte-for-byte so
// large integers survive.
func readDocument(r io.Reader) (json.RawMessage, error) {
	dec := json.NewDecoder(r)
	var doc json.RawMessage
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON input: unexpected data after document")
	}
	return doc, nil
}

func recordLabel(typeName, uid string) string {
	if uid == "" {
		return typeName
	}
	return typeName + "/" + uid
}
