// Command abelctl is Abel's management CLI: a thin client over the
// management API (list/fetch/deploy/start/stop/rm). The target host and
// token come from --server/--token flags or the ABEL_SERVER /
// ABEL_AUTH_TOKEN environment variables, flags winning.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	libhcl "github.com/nabbar/abel/httpcli"
)

func main() {
	var server, token string

	v := viper.New()
	_ = v.BindEnv("server", "ABEL_SERVER")
	_ = v.BindEnv("token", "ABEL_AUTH_TOKEN")

	root := &cobra.Command{
		Use:   "abelctl",
		Short: "manage services on an Abel host",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			server = v.GetString("server")
			token = v.GetString("token")
			if server == "" {
				return fmt.Errorf("no server address: pass --server or set ABEL_SERVER")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&server, "server", "", "Abel host base URL (or $ABEL_SERVER)")
	root.PersistentFlags().StringVar(&token, "token", "", "bearer token (or $ABEL_AUTH_TOKEN)")
	_ = v.BindPFlag("server", root.PersistentFlags().Lookup("server"))
	_ = v.BindPFlag("token", root.PersistentFlags().Lookup("token"))

	root.AddCommand(
		listCmd(&server, &token),
		getCmd(&server, &token),
		deployCmd(&server, &token),
		startStopCmd(&server, &token, "start"),
		startStopCmd(&server, &token, "stop"),
		rmCmd(&server, &token),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRequest(server, token, method, path string) libhcl.Request {
	r := libhcl.New(nil)
	_ = r.Endpoint(server)
	r.AddPath(path)
	r.Method(method)
	if token != "" {
		r.AuthBearer(token)
	}
	return r
}

func doJSON(server, token, method, path string) (int, []byte, error) {
	r := newRequest(server, token, method, path)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := r.Do(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, rerr := io.ReadAll(resp.Body)
	if rerr != nil {
		return resp.StatusCode, nil, rerr
	}
	return resp.StatusCode, body, nil
}

func listCmd(server, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list every service known to the host",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := doJSON(*server, *token, "GET", "/services")
			if err != nil {
				return err
			}
			fmt.Printf("%d %s\n", status, body)
			return nil
		},
	}
}

func getCmd(server, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "fetch one service's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := doJSON(*server, *token, "GET", "/services/"+args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%d %s\n", status, body)
			return nil
		},
	}
}

func rmCmd(server, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "remove a stopped service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := doJSON(*server, *token, "DELETE", "/services/"+args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%d %s\n", status, body)
			return nil
		},
	}
}

func startStopCmd(server, token *string, op string) *cobra.Command {
	return &cobra.Command{
		Use:   op + " <name>",
		Short: op + " a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newRequest(*server, *token, "PATCH", "/services/"+args[0])
			r.AddParams("op", op)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			resp, err := r.Do(ctx)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			fmt.Printf("%d %s\n", resp.StatusCode, body)
			return nil
		},
	}
}

// deployCmd implements the upload side of the management API: a single
// .lua file goes up under the "single" multipart field, anything else (a
// directory zipped beforehand, or an .asar) under "multi".
func deployCmd(server, token *string) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "deploy <name> <file>",
		Short: "upload a service's source (create/hot/cold/load)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]

			body, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			field := "multi"
			if strings.EqualFold(filepath.Ext(path), ".lua") {
				field = "single"
			}

			buf, contentType, err := buildMultipart(field, filepath.Base(path), body)
			if err != nil {
				return err
			}

			r := newRequest(*server, *token, "PUT", "/services/"+name)
			r.AddParams("mode", mode)
			r.ContentType(contentType)
			r.RequestReader(buf)

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			resp, derr := r.Do(ctx)
			if derr != nil {
				return derr
			}
			defer resp.Body.Close()

			respBody, _ := io.ReadAll(resp.Body)
			fmt.Printf("%d %s\n", resp.StatusCode, respBody)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "cold", "upload mode: create|hot|cold|load")
	return cmd
}

func buildMultipart(field, filename string, body []byte) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(body); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}
