// Command spinelctl issues a single Spinel property get against an NCP and
// prints the decoded result, for manual poking at a device the way the
// library's own test harness would exercise it. It has no option for
// setting a property.
package main

import (
	"fmt"
	"os"
	"time"

	charm "github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/RafaelMicro/gospinel/hdlc"
	"github.com/RafaelMicro/gospinel/spinel/property"
	"github.com/RafaelMicro/gospinel/spinel/transaction"
	"github.com/RafaelMicro/gospinel/spinellog"
	"github.com/RafaelMicro/gospinel/transport"
)

type hdlcFramer struct{}

func (hdlcFramer) Encode(frame []byte) []byte { return hdlc.Encode(frame) }

func main() {
	var (
		addr    = flag.StringP("tcp", "t", "", "connect to an NCP exposed over TCP at host:port")
		serial  = flag.StringP("serial", "s", "", "connect to an NCP over a serial device")
		baud    = flag.Int("baud", 115200, "baud rate for --serial")
		get     = flag.Uint32("get", 0, "property id to PROP_VALUE_GET")
		timeout = flag.Duration("timeout", transaction.DefaultTimeout, "request timeout")
		framed  = flag.Bool("hdlc", false, "apply HDLC-lite framing on the wire")
		verbose = flag.BoolP("verbose", "v", false, "debug logging")
	)
	flag.Parse()

	level := charm.InfoLevel
	if *verbose {
		level = charm.DebugLevel
	}
	log := spinellog.New("spinelctl", os.Stderr, level)

	if *addr == "" && *serial == "" {
		fmt.Fprintln(os.Stderr, "spinelctl: one of --tcp or --serial is required")
		os.Exit(2)
	}

	var rw interface {
		Read([]byte) (int, error)
		Write([]byte) (int, error)
		Close() error
	}
	var err error
	switch {
	case *addr != "":
		rw, err = transport.DialTCP(*addr, 5*time.Second, log)
	default:
		rw, err = transport.OpenSerial(transport.SerialConfig{Address: *serial, BaudRate: *baud, Timeout: 5 * time.Second}, log)
	}
	if err != nil {
		log.Error("connecting to NCP", "err", err)
		os.Exit(1)
	}
	defer rw.Close()

	registry := property.NewRegistry(log)
	prefixes := transaction.NewPrefixHandler(16, false, log)
	opts := []transaction.Option{transaction.WithLogger(log), transaction.WithPrefixHandler(prefixes)}
	var deframer transaction.Deframer
	if *framed {
		opts = append(opts, transaction.WithFramer(hdlcFramer{}))
		deframer = hdlc.NewCollector()
	}
	mux := transaction.New(rw, registry, opts...)
	reader := transaction.NewReader(rw, deframer, mux)
	go prefixes.Run()
	defer prefixes.Close()
	go func() {
		if err := reader.Run(); err != nil {
			log.Error("reader stopped", "err", err)
		}
	}()

	value, err := mux.PropGet(property.ID(*get), 1, *timeout)
	if err != nil {
		log.Error("prop_get failed", "property", *get, "err", err)
		os.Exit(1)
	}
	fmt.Printf("%d = %#v\n", *get, value)
}
