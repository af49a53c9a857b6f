package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gospi/core"
	"gospi/host/client"
	"gospi/host/config"
)

var (
	device   = flag.String("device", "", "serial device path (overrides config file)")
	baud     = flag.Int("baud", 0, "baud rate (overrides config file)")
	cfgPath  = flag.String("config", "", "JSON configuration file")
	loopback = flag.Bool("loopback", false, "run against an in-process controller with mosi looped to miso")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		data, err := os.ReadFile(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: read config: %v\n", err)
			os.Exit(1)
		}
		cfg, err = config.Load(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: parse config: %v\n", err)
			os.Exit(1)
		}
	}
	if *device != "" {
		cfg.Link.Device = *device
	}
	if *baud != 0 {
		cfg.Link.Baud = *baud
	}

	var c *client.Client
	if *loopback {
		c = startLoopback()
		fmt.Println("Running against in-process loopback controller")
	} else {
		var err error
		fmt.Printf("Connecting to %s...\n", cfg.Link.Device)
		c, err = client.Connect(cfg.SerialConfig())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	defer c.Close()

	dict, err := c.Identify()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: identify: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Controller %s: %d commands, %d responses\n",
		dict.Version, len(dict.Commands), len(dict.Responses))

	coreCfg := cfg.Controller.CoreConfig()
	if err := c.SetConfig(coreCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: apply config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Enter commands ('help' for a list, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "quit", "exit", "q":
			return
		case "help", "?":
			printHelp()
		case "dict":
			printDict(dict)
		case "status":
			st, err := c.Status()
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Printf("offline=%v active=%v pending=%v raw=%#08x\n",
				st.Offline, st.Active, st.Pending, st.Bits())
		case "read":
			if len(parts) != 2 {
				fmt.Println("usage: read <reg>")
				continue
			}
			reg, ok := parseU32(parts[1])
			if !ok {
				continue
			}
			v, err := c.ReadReg(uint8(reg))
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Printf("reg[%d] = %#08x\n", reg, v)
		case "write":
			if len(parts) != 3 {
				fmt.Println("usage: write <reg> <value>")
				continue
			}
			reg, ok1 := parseU32(parts[1])
			val, ok2 := parseU32(parts[2])
			if !ok1 || !ok2 {
				continue
			}
			if err := c.WriteReg(uint8(reg), val); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		case "xfer":
			if len(parts) != 5 {
				fmt.Println("usage: xfer <cs> <write_len> <read_len> <data>")
				continue
			}
			cs, ok1 := parseU32(parts[1])
			wl, ok2 := parseU32(parts[2])
			rl, ok3 := parseU32(parts[3])
			data, ok4 := parseU32(parts[4])
			if !ok1 || !ok2 || !ok3 || !ok4 {
				continue
			}
			x := core.Xfer{CS: uint16(cs), WriteLen: uint8(wl), ReadLen: uint8(rl)}
			result, err := c.Xfer(x, data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Printf("read data = %#08x\n", result)
		default:
			fmt.Printf("unknown command %q ('help' for a list)\n", parts[0])
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
		os.Exit(1)
	}
}

// startLoopback runs a controller model in-process with its output
// looped to its input, served over a pipe.
func startLoopback() *client.Client {
	ctrl := core.NewController()
	ctrl.Loopback = true
	srv := core.NewServer(ctrl)
	hostEnd, deviceEnd := net.Pipe()
	go func() { _ = srv.Serve(deviceEnd) }()
	return client.New(hostEnd)
}

func parseU32(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: bad number %q\n", s)
		return 0, false
	}
	return uint32(v), true
}

func printDict(d *client.Dictionary) {
	fmt.Printf("version: %s\n", d.Version)
	fmt.Println("commands:")
	for name, id := range d.Commands {
		fmt.Printf("  [%d] %s\n", id, name)
	}
	fmt.Println("responses:")
	for name, id := range d.Responses {
		fmt.Printf("  [%d] %s\n", id, name)
	}
	fmt.Println("config:")
	for name, v := range d.Config {
		fmt.Printf("  %s = %d\n", name, v)
	}
}

func printHelp() {
	fmt.Println("commands:")
	fmt.Println("  status                             controller state")
	fmt.Println("  read <reg>                         read a register (0=data 1=xfer 2=config)")
	fmt.Println("  write <reg> <value>                write a register")
	fmt.Println("  xfer <cs> <write_len> <read_len> <data>   run one transfer")
	fmt.Println("  dict                               print the command dictionary")
	fmt.Println("  quit")
}
