package main

import (
	"errors"
	"flag"
	"os"
	"strconv"

	"grimm.is/l2bridge/cmd"
	"grimm.is/l2bridge/internal/brand"
	"grimm.is/l2bridge/internal/i18n"
)

var printer = i18n.NewCLIPrinter()

// configFlag registers -config and its -c short form.
func configFlag(fs *flag.FlagSet) *string {
	configFile := fs.String("config", brand.DefaultConfigPath(), "Configuration file")
	fs.StringVar(configFile, "c", brand.DefaultConfigPath(), "Configuration file (short)")
	return configFile
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runFlags := flag.NewFlagSet("run", flag.ExitOnError)
		configFile := configFlag(runFlags)
		runFlags.Parse(os.Args[2:])

		if err := cmd.RunDaemon(*configFile); err != nil {
			printer.Fprintf(os.Stderr, "Run failed: %v\n", err)
			os.Exit(1)
		}

	case "reload":
		reloadFlags := flag.NewFlagSet("reload", flag.ExitOnError)
		configFile := configFlag(reloadFlags)
		reloadFlags.Parse(os.Args[2:])
		if len(reloadFlags.Args()) > 0 {
			*configFile = reloadFlags.Arg(0)
		}

		if err := cmd.RunReload(*configFile); err != nil {
			printer.Fprintf(os.Stderr, "Reload failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		verbose := checkFlags.Bool("verbose", false, "Verbose output")
		checkFlags.BoolVar(verbose, "v", false, "Verbose output (short)")
		checkFlags.Parse(os.Args[2:])

		configFile := brand.DefaultConfigPath()
		if len(checkFlags.Args()) > 0 {
			configFile = checkFlags.Arg(0)
		}

		if err := cmd.RunCheck(configFile, *verbose); err != nil {
			printer.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

	case "show":
		showFlags := flag.NewFlagSet("show", flag.ExitOnError)
		configFile := configFlag(showFlags)
		params := showFlags.Bool("params", false, "List TR-098 parameters instead of the table summary")
		showFlags.BoolVar(params, "p", false, "List TR-098 parameters (short)")
		prefix := showFlags.String("prefix", "", "Only list parameters below this path")
		asJSON := showFlags.Bool("json", false, "Print JSON")
		showFlags.Parse(os.Args[2:])

		if err := cmd.RunShow(*configFile, *params, *prefix, *asJSON); err != nil {
			printer.Fprintf(os.Stderr, "Show failed: %v\n", err)
			os.Exit(1)
		}

	case "classify":
		classifyFlags := flag.NewFlagSet("classify", flag.ExitOnError)
		configFile := configFlag(classifyFlags)
		opts := cmd.DefaultClassifyOptions()
		classifyFlags.IntVar(&opts.Ingress, "in", 0, "Ingress AvailableInterface key")
		classifyFlags.StringVar(&opts.Frame, "frame", "", "Raw Ethernet frame as hex")
		classifyFlags.StringVar(&opts.Src, "src", opts.Src, "Source MAC")
		classifyFlags.StringVar(&opts.Dst, "dst", opts.Dst, "Destination MAC")
		classifyFlags.StringVar(&opts.Ethertype, "ethertype", opts.Ethertype, "Ethertype")
		classifyFlags.IntVar(&opts.VLAN, "vlan", opts.VLAN, "VLAN ID (-1 untagged, 0 priority tagged)")
		classifyFlags.IntVar(&opts.PCP, "pcp", opts.PCP, "802.1p priority")
		classifyFlags.StringVar(&opts.VendorClass, "vendor-class", "", "DHCP vendor class ID of the source")
		classifyFlags.StringVar(&opts.ClientID, "client-id", "", "DHCP client ID of the source (hex)")
		classifyFlags.StringVar(&opts.UserClass, "user-class", "", "DHCP user class ID of the source")
		classifyFlags.Parse(os.Args[2:])

		if opts.Ingress <= 0 {
			printer.Fprintf(os.Stderr, "Usage: %s classify -c <config> -in <key> [-frame <hex> | -src -dst -ethertype -vlan -pcp]\n", brand.BinaryName)
			os.Exit(1)
		}
		if err := cmd.RunClassify(*configFile, opts); err != nil {
			printer.Fprintf(os.Stderr, "Classify failed: %v\n", err)
			os.Exit(1)
		}

	case "diff":
		diffFlags := flag.NewFlagSet("diff", flag.ExitOnError)
		params := diffFlags.Bool("params", false, "Compare TR-098 parameters")
		diffFlags.BoolVar(params, "p", false, "Compare TR-098 parameters (short)")
		diffFlags.Parse(os.Args[2:])

		if diffFlags.NArg() != 2 {
			printer.Println("Usage: " + brand.BinaryName + " diff [-params] <config-a> <config-b>")
			os.Exit(1)
		}
		if err := cmd.RunDiff(diffFlags.Arg(0), diffFlags.Arg(1), *params); err != nil {
			if !errors.Is(err, cmd.ErrConfigsDiffer) {
				printer.Fprintf(os.Stderr, "%v\n", err)
			}
			os.Exit(1)
		}

	case "set":
		setFlags := flag.NewFlagSet("set", flag.ExitOnError)
		configFile := configFlag(setFlags)
		setFlags.Parse(os.Args[2:])

		if err := cmd.RunSet(*configFile, setFlags.Args()); err != nil {
			printer.Fprintf(os.Stderr, "Set failed: %v\n", err)
			os.Exit(1)
		}

	case "add":
		addFlags := flag.NewFlagSet("add", flag.ExitOnError)
		configFile := configFlag(addFlags)
		addFlags.Parse(os.Args[2:])

		if addFlags.NArg() < 1 || addFlags.NArg() > 2 {
			printer.Println("Usage: " + brand.BinaryName + " add -c <config> <table-path> [key]")
			os.Exit(1)
		}
		key := 0
		if addFlags.NArg() == 2 {
			var err error
			if key, err = strconv.Atoi(addFlags.Arg(1)); err != nil {
				printer.Fprintf(os.Stderr, "Invalid key %q\n", addFlags.Arg(1))
				os.Exit(1)
			}
		}
		if err := cmd.RunAdd(*configFile, addFlags.Arg(0), key); err != nil {
			printer.Fprintf(os.Stderr, "Add failed: %v\n", err)
			os.Exit(1)
		}

	case "delete":
		deleteFlags := flag.NewFlagSet("delete", flag.ExitOnError)
		configFile := configFlag(deleteFlags)
		deleteFlags.Parse(os.Args[2:])

		if deleteFlags.NArg() != 1 {
			printer.Println("Usage: " + brand.BinaryName + " delete -c <config> <object-path>")
			os.Exit(1)
		}
		if err := cmd.RunDelete(*configFile, deleteFlags.Arg(0)); err != nil {
			printer.Fprintf(os.Stderr, "Delete failed: %v\n", err)
			os.Exit(1)
		}

	case "history":
		historyFlags := flag.NewFlagSet("history", flag.ExitOnError)
		configFile := configFlag(historyFlags)
		var opts cmd.HistoryOptions
		historyFlags.IntVar(&opts.Limit, "n", 50, "Maximum number of events")
		historyFlags.StringVar(&opts.Type, "type", "", "Only events of this type (e.g. table.changed)")
		historyFlags.StringVar(&opts.Resource, "resource", "", "Only events about this resource (e.g. filter/2)")
		historyFlags.DurationVar(&opts.Since, "since", 0, "Only events newer than this age (e.g. 24h)")
		historyFlags.BoolVar(&opts.JSON, "json", false, "Print JSON")
		historyFlags.Parse(os.Args[2:])

		if err := cmd.RunHistory(*configFile, opts); err != nil {
			printer.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}

	case "vendordb":
		vendorFlags := flag.NewFlagSet("vendordb", flag.ExitOnError)
		output := vendorFlags.String("output", "", "Compact database to write")
		vendorFlags.StringVar(output, "o", "", "Compact database to write (short)")
		vendorFlags.Parse(os.Args[2:])

		if err := cmd.RunVendorDB(*output, vendorFlags.Args()); err != nil {
			printer.Fprintf(os.Stderr, "Vendor database build failed: %v\n", err)
			os.Exit(1)
		}

	case "version":
		printer.Printf("%s version %s\n", brand.Name, brand.Version)

	case "help", "-h", "--help":
		printUsage()

	default:
		printer.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printer.Printf(`%s - %s

Usage:
  %s <command> [options]

Daemon Commands:
  run       Run the bridging engine in the foreground
            Options: --config (-c) <file>
  reload    Validate the configuration and signal the daemon to reload it

Table Commands:
  check     Validate configuration file
            Options: --verbose (-v)
  show      Display the bridging tables
            Options: --params (-p), --prefix <path>, --json
  classify  Show where a test frame would be delivered
            Options: -in <key>, -frame <hex>, -src, -dst, -ethertype, -vlan, -pcp,
                     -vendor-class, -client-id, -user-class
  diff      Compare the tables of two configuration files
            Options: --params (-p)
  set       Set TR-098 parameters (path=value ...) and save the configuration
  add       Add a TR-098 object instance and save the configuration
  delete    Delete a TR-098 object instance and save the configuration
  history   Show the journal of table, interface and identity events
            Options: -n <count>, -type <type>, -resource <table/key>, -since <age>, --json
  vendordb  Build the DHCP vendor database from IEEE registry files
            Options: --output (-o) <file>

Examples:
  %s run -c %s
  %s show -c %s -params -prefix Filter.
  %s classify -c %s -in 1 -src 00:11:22:33:44:55 -vlan 10
  %s set -c %s Filter.2.ExclusivityOrder=1
`, brand.Name, brand.Description, brand.BinaryName,
		brand.BinaryName, brand.DefaultConfigPath(),
		brand.BinaryName, brand.DefaultConfigPath(),
		brand.BinaryName, brand.DefaultConfigPath(),
		brand.BinaryName, brand.DefaultConfigPath())
}
