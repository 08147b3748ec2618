// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Thermoquad/glucid/pkg/device"
	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/Thermoquad/glucid/pkg/sim"
	"github.com/Thermoquad/glucid/pkg/trace"
	"github.com/Thermoquad/glucid/pkg/transport"
	"golang.org/x/term"
)

// simScheme selects the in-memory simulator as the port
const simScheme = "sim://"

// bridgePassword returns the password for the WebSocket bridge account.
// GLUCID_PASSWORD wins; otherwise the user is asked on the terminal, or a
// line is read from stdin when there is no terminal.
func bridgePassword(username string) (string, error) {
	if pw, ok := os.LookupEnv("GLUCID_PASSWORD"); ok {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read bridge password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprintf(os.Stderr, "Bridge password for %s: ", username)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read bridge password: %w", err)
	}
	return string(pw), nil
}

// session is an open controller plus what must be closed with it
type session struct {
	*device.Controller
	recorder *trace.Recorder
}

func (s *session) Close() {
	if err := s.Controller.Close(); err != nil {
		logger.Warn().Err(err).Msg("close connection")
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			logger.Warn().Err(err).Msg("close capture")
		}
	}
}

// openSession connects to the unit selected by the settings
func openSession() (*session, error) {
	instance, err := settings.Instance()
	if err != nil {
		return nil, err
	}
	framing, err := settings.FramingMode()
	if err != nil {
		return nil, err
	}

	s := &session{}
	opts := []device.Option{
		device.WithInstance(instance),
		device.WithRetries(settings.Retries),
		device.WithTimeout(settings.Timeout),
		device.WithLogger(logger),
	}
	if tracePath != "" {
		if s.recorder, err = trace.Create(tracePath); err != nil {
			return nil, err
		}
		opts = append(opts, device.WithTrace(s.recorder))
		logger.Info().Str("session", s.recorder.Session().String()).Str("file", tracePath).Msg("capturing")
	}

	s.Controller, err = connect(instance, framing, opts)
	if err != nil {
		if s.recorder != nil {
			_ = s.recorder.Close()
		}
		return nil, err
	}
	return s, nil
}

// connect opens whichever endpoint the settings name and wraps it in a
// controller
func connect(instance lucid.InstanceID, framing transport.Framing, opts []device.Option) (*device.Controller, error) {
	if strings.HasPrefix(settings.Device, simScheme) {
		simID := instance
		if id := strings.TrimPrefix(settings.Device, simScheme); id != "" {
			var err error
			if simID, err = lucid.ParseInstanceID(id); err != nil {
				return nil, err
			}
		}
		dev := sim.New(simID, sim.WithFraming(framing))
		conn := transport.NewConn(dev, framing, settings.Timeout, "Simulator: "+settings.Device)
		return device.New(conn, opts...), nil
	}

	ep := transport.Endpoint{
		Timeout: settings.Timeout,
		Framing: framing,
	}
	switch {
	case settings.URL != "":
		ep.Path = settings.URL
		ep.Username = settings.Username
		ep.SkipTLSVerify = wsNoSSLVerify
		if ep.Username != "" {
			var err error
			if ep.Password, err = bridgePassword(ep.Username); err != nil {
				return nil, err
			}
		}
	case settings.Device != "":
		ep.Path = settings.Device
		ep.Baud = settings.Baud
	default:
		return nil, fmt.Errorf("either --port or --url must be specified")
	}
	return device.Connect(ep, opts...)
}
