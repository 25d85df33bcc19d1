package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	genericapiserver "k8s.io/apiserver/pkg/server"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	grpcmw "github.com/flightlab-io/flightlab/internal/pkg/middleware/grpc"
	"github.com/flightlab-io/flightlab/pkg/app"
)

const (
	commandName = "flightlabctl"
	commandDesc = `flightlabctl inspects and drives a running Flight Lab master.`
)

type ctlOptions struct {
	Master  string
	HTTP    string
	Timeout time.Duration
}

func (o *ctlOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Master, "master", o.Master, "Address of the master ControlService.")
	fs.StringVar(&o.HTTP, "http", o.HTTP, "Base URL of the master HTTP façade.")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Timeout for single requests.")
}

func NewApp() *app.App {
	opts := &ctlOptions{
		Master:  "127.0.0.1:9000",
		HTTP:    "http://127.0.0.1:8080",
		Timeout: 10 * time.Second,
	}

	cmds := []*cobra.Command{newStatusCmd(opts), newWatchCmd(opts)}
	for _, c := range []struct{ name, path, short string }{
		{"on", "/system/on", "Turn every component on"},
		{"off", "/system/off", "Turn every component off"},
		{"restart", "/system/restart", "Restart every component"},
		{"exit", "/exit", "Terminate every client process"},
		{"debug", "/debug", "Ask every client to dump its active tasks"},
	} {
		cmds = append(cmds, newHTTPCmd(opts, c.name, c.path, c.short))
	}

	return app.NewApp(
		commandName,
		"Inspect and control Flight Lab",
		app.WithDescription(commandDesc),
		app.WithNoConfig(),
		app.WithSilence(),
		app.WithCommands(cmds...),
	)
}

func dial(o *ctlOptions) (v1.ControlServiceClient, func() error, error) {
	conn, err := grpc.NewClient(o.Master,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpcmw.UnaryTimeout(o.Timeout)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to master %q: %w", o.Master, err)
	}
	return v1.NewControlServiceClient(conn), conn.Close, nil
}

func newStatusCmd(o *ctlOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of every component",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, closeConn, err := dial(o)
			if err != nil {
				return err
			}
			defer closeConn()

			cfg, err := client.GetConfig(cmd.Context(), &emptypb.Empty{})
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
	o.AddFlags(cmd.Flags())
	return cmd
}

func printStatus(w io.Writer, cfg *v1.SystemConfig) {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("MACHINE", "COMPONENT", "KIND", "STATUS", "DETAIL")
	for _, m := range cfg.Machines {
		for _, c := range m.Components {
			table.AddRow(m.Name, c.Name, c.Kind(), c.Status, detail(c.StatusReport()))
		}
	}
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "\nSystem state: %s\n", cfg.State)
}

func detail(cs *v1.ComponentStatus) string {
	if ks := cs.KindStatus(); ks != nil {
		return ks.String()
	}
	return "-"
}

func newWatchCmd(o *ctlOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream status reports as machines push them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, closeConn, err := dial(o)
			if err != nil {
				return err
			}
			defer closeConn()

			ctx := genericapiserver.SetupSignalContext()
			stream, err := client.WatchStatus(ctx, &emptypb.Empty{})
			if err != nil {
				return err
			}
			for {
				ms, err := stream.Recv()
				if err != nil {
					if ctx.Err() != nil || err == io.EOF {
						return nil
					}
					return err
				}
				printReport(cmd.OutOrStdout(), time.Now(), ms)
			}
		},
	}
	o.AddFlags(cmd.Flags())
	return cmd
}

func printReport(w io.Writer, now time.Time, ms *v1.MachineStatus) {
	for _, cs := range ms.ComponentStatus {
		fmt.Fprintf(w, "%s %s/%s %s %s\n", now.Format(time.TimeOnly), ms.Name, cs.Name, cs.Status, detail(cs))
	}
}

func newHTTPCmd(o *ctlOptions, name, path, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), o.Timeout)
			defer cancel()
			body, err := get(ctx, strings.TrimSuffix(o.HTTP, "/")+path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
	o.AddFlags(cmd.Flags())
	return cmd
}

func get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}
