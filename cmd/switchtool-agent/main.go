package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmeubank/switchtool/internal/util"
	"github.com/jmeubank/switchtool/pkg/agent"
	"github.com/jmeubank/switchtool/pkg/boss"
	"github.com/jmeubank/switchtool/pkg/config"
	"github.com/jmeubank/switchtool/pkg/version"

	_ "github.com/jmeubank/switchtool/pkg/device/airos"
	_ "github.com/jmeubank/switchtool/pkg/device/calixaeont"
	_ "github.com/jmeubank/switchtool/pkg/device/calixe"
	_ "github.com/jmeubank/switchtool/pkg/device/ciscoios"
	_ "github.com/jmeubank/switchtool/pkg/device/junos"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "switchtool-agent [port]",
		Short: "Drives one network device on behalf of a boss controller",
		Long: `switchtool-agent speaks a framed JSON protocol to a controller
("boss"), translating its commands into Telnet/SSH/NETCONF/SNMP sessions
against one network device per invocation.

With no arguments, the boss channel is the process's stdin/stdout. Given a
positional port, the agent instead connects to 127.0.0.1:<port> over TCP.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		RunE:              runAgent,
	}

	rootCmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "path to config file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "text", "log output format (text, json)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Info())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	if err := util.SetLogLevel(logLevel); err != nil {
		return err
	}
	if logFormat == "json" {
		util.SetJSONFormat()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Apply()

	var b *boss.Boss
	if len(args) == 1 {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[0], err)
		}
		b, err = boss.Dial(port)
		if err != nil {
			return err
		}
		defer b.Close()
		if err := b.SendReady(); err != nil {
			return err
		}
	} else {
		b = boss.NewStdio(os.Stdin, os.Stdout)
	}

	// The original also unconditionally writes the ready frame to stdout
	// even in TCP mode, since some bosses read it from there rather than
	// the socket.
	if err := boss.WriteReadyToStdout(os.Stdout); err != nil {
		return err
	}

	if err := agent.New(b).Run(); err != nil {
		if serr := b.SendError(err.Error()); serr != nil {
			util.WithField("error", serr).Warn("failed to report error to boss")
		}
		return err
	}
	return nil
}
