// Command dpbreakout runs one Dynamic Port Breakout transaction against a
// SONiC switch's Config DB and Asic DB.
//
//	dpbreakout --current-mode 1x100G[40G] --new-mode 4x25G[10G] --load-default
//
// The mode tables below (delPorts/addPorts/portJson per mode) are the seed
// a single Ethernet0-rooted breakout test needs; they name the CLI's
// contract, not a production port-mode registry — a real deployment reads
// addPorts/portJson from the caller, not a fixed lookup table.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonic-net/dpbreakout/pkg/breakout"
	"github.com/sonic-net/dpbreakout/pkg/cli"
	"github.com/sonic-net/dpbreakout/pkg/dbclient"
	"github.com/sonic-net/dpbreakout/pkg/settings"
	"github.com/sonic-net/dpbreakout/pkg/tree"
	"github.com/sonic-net/dpbreakout/pkg/util"
)

var portModes = []string{"4x25G[10G]", "1x100G[40G]", "2x50G"}

var delPortsByMode = map[string][]string{
	"4x25G[10G]":  {"Ethernet0", "Ethernet1", "Ethernet2", "Ethernet3"},
	"1x100G[40G]": {"Ethernet0"},
	"2x50G":       {"Ethernet0", "Ethernet2"},
}

var portJSONByMode = map[string]map[string]tree.Node{
	"4x25G[10G]": {
		"Ethernet0": map[string]interface{}{"alias": "Eth1/1", "description": "", "index": "0", "lanes": "65", "speed": "25000"},
		"Ethernet1": map[string]interface{}{"alias": "Eth1/2", "description": "", "index": "0", "lanes": "66", "speed": "25000"},
		"Ethernet2": map[string]interface{}{"alias": "Eth1/3", "description": "", "index": "0", "lanes": "67", "speed": "25000"},
		"Ethernet3": map[string]interface{}{"alias": "Eth1/4", "description": "", "index": "0", "lanes": "68", "speed": "25000"},
	},
	"1x100G[40G]": {
		"Ethernet0": map[string]interface{}{"alias": "Eth1/1", "admin_status": "up", "lanes": "65,66,67,68", "description": "", "speed": "100000"},
	},
	"2x50G": {
		"Ethernet0": map[string]interface{}{"alias": "Eth1/1", "admin_status": "up", "lanes": "65,66", "description": "", "speed": "50000"},
		"Ethernet2": map[string]interface{}{"alias": "Eth1/3", "admin_status": "up", "lanes": "67,68", "description": "", "speed": "50000"},
	},
}

type cliFlags struct {
	currentMode string
	newMode     string
	ports       string
	loadDefault bool
	force       bool
	verbose     bool
}

func main() {
	flags := &cliFlags{}
	root := newRootCmd(flags)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dpbreakout",
		Short:         "Dynamic Port Breakout for SONiC Config DB / Asic DB",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBreakOut(flags)
		},
	}

	cmd.Flags().StringVar(&flags.currentMode, "current-mode", "", fmt.Sprintf("current port mode %v", portModes))
	cmd.Flags().StringVar(&flags.newMode, "new-mode", "", fmt.Sprintf("new port mode %v", portModes))
	cmd.Flags().StringVar(&flags.ports, "ports", "", "explicit ports to break out, overriding the mode's lookup table "+
		`(e.g. "Ethernet0,Ethernet4" or "Ethernet0-3")`)
	cmd.Flags().BoolVar(&flags.loadDefault, "load-default", false, "load per-port default config after add")
	cmd.Flags().BoolVar(&flags.force, "force", false, "force delete even if dependencies exist")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging")
	cmd.MarkFlagRequired("current-mode")
	cmd.MarkFlagRequired("new-mode")

	return cmd
}

func runBreakOut(flags *cliFlags) error {
	if flags.verbose {
		util.SetLogLevel("debug")
	} else {
		util.SetLogLevel("warn")
	}

	if err := validateMode(flags.currentMode); err != nil {
		return err
	}
	if err := validateMode(flags.newMode); err != nil {
		return err
	}
	if flags.currentMode == flags.newMode {
		fmt.Println("current mode of PORT is same as new mode")
		return nil
	}

	s, err := settings.Load()
	if err != nil {
		util.Logger.Warnf("could not load settings: %v", err)
		s = &settings.Settings{}
	}

	configAddr, asicAddr := s.ConfigDBAddr, s.AsicDBAddr
	if s.SSHHost != "" {
		tunnel, err := dbclient.NewSSHTunnel(s.SSHHost, s.SSHUser, s.SSHPass, s.SSHPort)
		if err != nil {
			return fmt.Errorf("opening ssh tunnel to %s: %w", s.SSHHost, err)
		}
		defer tunnel.Close()
		// Config DB and Asic DB are different logical DBs on the same Redis
		// instance, so one tunnel forwards both.
		configAddr, asicAddr = tunnel.LocalAddr(), tunnel.LocalAddr()
	}

	configDB := dbclient.NewConfigDBClient(configAddr)
	if err := configDB.Connect(); err != nil {
		return fmt.Errorf("connecting to config db: %w", err)
	}
	defer configDB.Close()

	asicDB := dbclient.NewAsicDBClient(asicAddr)
	if err := asicDB.Connect(); err != nil {
		return fmt.Errorf("connecting to asic db: %w", err)
	}
	defer asicDB.Close()

	engine := breakout.NewEngine(configDB, asicDB, s)

	delPorts, addPorts := delPortsByMode[flags.currentMode], delPortsByMode[flags.newMode]
	if flags.ports != "" {
		explicit, err := resolvePortList(flags.ports)
		if err != nil {
			return fmt.Errorf("parsing --ports: %w", err)
		}
		delPorts, addPorts = explicit, explicit
	}

	req := breakout.Request{
		DelPorts:     delPorts,
		AddPorts:     addPorts,
		PortJSON:     portJSONByMode[flags.newMode],
		Force:        flags.force,
		LoadDefaults: flags.loadDefault,
	}

	result, err := engine.BreakOut(context.Background(), req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if result == nil {
		return err
	}

	printResult(result)
	if result.State == breakout.StateFailed {
		os.Exit(1)
	}
	return nil
}

// resolvePortList accepts either a comma-separated literal port list
// ("Ethernet0,Ethernet4") or an interface range ("Ethernet0-3"), letting
// --ports target ports outside the three canned modes above.
func resolvePortList(spec string) ([]string, error) {
	if strings.ContainsAny(spec, "-") {
		return util.ExpandInterfaceRange(spec)
	}
	return util.SplitCommaSeparated(spec), nil
}

// printResult renders a transaction outcome through pkg/cli's table
// renderer: a single-row status table, plus (on failure) a dependency
// table when the block was caused by live dependents.
func printResult(result *breakout.Result) {
	state := string(result.State)
	if result.State == breakout.StateDone {
		state = cli.Green(state)
	} else if result.State == breakout.StateFailed {
		state = cli.Red(state)
	}

	status := cli.NewTable("STATE", "REASON")
	status.Row(state, string(result.FailureReason))
	status.Flush()

	if len(result.Dependencies) > 0 {
		deps := cli.NewTable("BLOCKING DEPENDENCY")
		deps.WithPrefix("  ")
		for _, dep := range result.Dependencies {
			deps.Row(dep)
		}
		deps.Flush()
	}
}

func validateMode(mode string) error {
	for _, m := range portModes {
		if m == mode {
			return nil
		}
	}
	return fmt.Errorf("invalid mode %q, must be one of %v", mode, portModes)
}
