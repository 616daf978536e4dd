//go:build tinygo

// Package wifi brings up the CYW43439 radio of a Raspberry Pi Pico W and
// dials TCP connections through the lneto stack, so the meter can publish
// readings over MQTT.
//
// Credentials and the broker address are set with linker flags:
//
//	tinygo flash -target=pico-w -tags wifi \
//	  -ldflags="-X github.com/harveysanders/ropemeasure/wifi.ssid=shop \
//	            -X github.com/harveysanders/ropemeasure/wifi.pass=secret \
//	            -X github.com/harveysanders/ropemeasure/wifi.broker=10.0.0.9:1883" \
//	  ./firmware
package wifi

import (
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/lneto/x/xnet"
)

const mtu = cyw43439.MTU

var (
	ssid   string
	pass   string
	broker string
)

// SSID returns the WiFi SSID set via linker flags.
func SSID() string { return ssid }

// Password returns the WiFi password set via linker flags.
func Password() string { return pass }

// Broker returns the MQTT broker host:port set via linker flags.
func Broker() string { return broker }

// Config configures the radio and the lneto stack.
type Config struct {
	SSID     string
	Password string
	// Hostname is used for DHCP requests.
	Hostname string
	// RequestedAddr is the preferred IPv4 address. If DHCP fails and this
	// is set, it is used as a static address.
	RequestedAddr netip.Addr
	Logger        *slog.Logger
}

// Stack wraps the lneto StackAsync and the CYW43439 device.
type Stack struct {
	s       xnet.StackAsync
	dev     *cyw43439.Device
	log     *slog.Logger
	sendbuf []byte
}

// Up initializes the radio, joins the network and configures an address
// with DHCP. It retries the join until it succeeds.
func Up(cfg Config) (*Stack, error) {
	if cfg.Hostname == "" {
		return nil, errors.New("empty hostname")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	start := time.Now()
	dev := cyw43439.NewPicoWDevice()
	dev.SetLogger(logger)

	logger.Info("wifi:init")
	if err := dev.Init(cyw43439.DefaultWifiConfig()); err != nil {
		return nil, errors.New("wifi init failed: " + err.Error())
	}
	logger.Info("cyw43439:Init", slog.Duration("duration", time.Since(start)))

	for {
		err := dev.JoinWPA2(cfg.SSID, cfg.Password)
		if err == nil {
			break
		}
		logger.Error("wifi:join-failed", slog.String("ssid", cfg.SSID), slog.String("err", err.Error()))
		time.Sleep(5 * time.Second)
	}

	mac, err := dev.HardwareAddr6()
	if err != nil {
		return nil, errors.New("get hardware address: " + err.Error())
	}
	logger.Info("wifi:joined", slog.String("mac", net.HardwareAddr(mac[:]).String()))

	stack := &Stack{
		dev:     dev,
		log:     logger,
		sendbuf: make([]byte, mtu),
	}
	err = stack.s.Reset(xnet.StackConfig{
		Hostname:        cfg.Hostname,
		MaxTCPConns:     1,
		RandSeed:        time.Since(start).Nanoseconds(),
		HardwareAddress: mac,
		MTU:             mtu,
	})
	if err != nil {
		return nil, errors.New("stack reset: " + err.Error())
	}
	dev.RecvEthHandle(func(pkt []byte) error {
		return stack.s.Demux(pkt, 0)
	})

	go stack.serve()

	if err := stack.dhcp(cfg.RequestedAddr); err != nil {
		return nil, err
	}
	return stack, nil
}

func (s *Stack) dhcp(requested netip.Addr) error {
	if !requested.IsValid() {
		requested = netip.AddrFrom4([4]byte{})
	}
	if !requested.Is4() {
		return errors.New("only dhcpv4 supported")
	}

	rstack := s.s.StackRetrying(50 * time.Millisecond)
	s.log.Info("dhcp:starting")
	results, err := rstack.DoDHCPv4(requested.As4(), 3*time.Second, 3)
	if err != nil {
		if requested.IsUnspecified() {
			return errors.New("dhcp failed: " + err.Error())
		}
		s.log.Info("dhcp:static-fallback", slog.String("ip", requested.String()))
		s.s.SetIPAddr(requested)
		return nil
	}
	if err := s.s.AssimilateDHCPResults(results); err != nil {
		return errors.New("assimilate dhcp: " + err.Error())
	}
	gatewayHW, err := rstack.DoResolveHardwareAddress6(results.Router, 500*time.Millisecond, 4)
	if err != nil {
		return errors.New("resolve gateway: " + err.Error())
	}
	s.s.SetGateway6(gatewayHW)

	s.log.Info("dhcp:complete",
		slog.String("ourIP", results.AssignedAddr.String()),
		slog.String("router", results.Router.String()),
		slog.Uint64("lease_sec", uint64(results.TLease)),
	)
	return nil
}

// serve moves packets between the radio and the stack forever.
func (s *Stack) serve() {
	for {
		send, recv, _ := s.recvAndSend()
		if send == 0 && recv == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func (s *Stack) recvAndSend() (send, recv int, err error) {
	gotPacket, errRecv := s.dev.PollOne()
	if gotPacket {
		recv = 1
	}
	if errRecv != nil {
		s.log.Error("wifi:poll-failed", slog.String("err", errRecv.Error()))
	}

	send, err = s.s.Encapsulate(s.sendbuf, -1, 0)
	if err != nil {
		s.log.Error("wifi:encapsulate-failed", slog.Int("plen", send), slog.String("err", err.Error()))
	} else {
		err = errRecv
	}
	if send == 0 {
		return send, recv, err
	}

	if err = s.dev.SendEth(s.sendbuf[:send]); err != nil {
		s.log.Error("wifi:send-failed", slog.Int("plen", send), slog.String("err", err.Error()))
	}
	return send, recv, err
}

// Addr returns the current IP address of the stack.
func (s *Stack) Addr() netip.Addr {
	return s.s.Addr()
}
