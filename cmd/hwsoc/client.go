// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/db47h/hwsoc/scope"
	"github.com/db47h/hwsoc/soc"
	"github.com/db47h/hwsoc/uartbridge"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Access the bus of a device through its serial bridge.",
	}
	pf := cmd.PersistentFlags()
	pf.String("port", "/dev/ttyUSB1", "serial port")
	pf.Int("baudrate", soc.DefaultBaudrate, "serial baudrate")
	pf.Duration("timeout", time.Second, "response timeout")
	pf.String("csr", "", "register map (csr.csv) used to resolve register names")

	cmd.AddCommand(&cobra.Command{
		Use:   "read ADDR [COUNT]",
		Short: "Read COUNT words starting at ADDR.",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runRead,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "write ADDR VALUE...",
		Short: "Write consecutive words starting at ADDR.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runWrite,
	})

	capture := &cobra.Command{
		Use:   "capture",
		Short: "Arm the logic analyzer, wait for the trigger and dump the capture.",
		Args:  cobra.NoArgs,
		RunE:  runCapture,
	}
	f := capture.Flags()
	f.String("analyzer", "build/analyzer.csv", "analyzer description (analyzer.csv)")
	f.StringArray("trigger", nil, "trigger condition NAME=VALUE[/MASK], may be repeated")
	f.Int("post", -1, "post-trigger samples, -1 for the current setting")
	f.Int("polls", 1000, "maximum number of state polls")
	f.String("vcd", "capture.vcd", "output VCD file")
	cmd.AddCommand(capture)
	return cmd
}

// session holds an open connection to a device.
//
type session struct {
	serial *uartbridge.Serial
	client *uartbridge.Client
	regs   *soc.RegisterMap
}

func openSession(cmd *cobra.Command) (*session, error) {
	f := cmd.Flags()
	port, _ := f.GetString("port")
	baud, _ := f.GetInt("baudrate")
	timeout, _ := f.GetDuration("timeout")
	csr, _ := f.GetString("csr")
	s := &session{}
	if csr != "" {
		fd, err := os.Open(csr)
		if err != nil {
			return nil, errors.Wrap(err, "open register map")
		}
		s.regs, err = soc.ReadRegisterMap(bufio.NewReader(fd))
		fd.Close()
		if err != nil {
			return nil, errors.Wrap(err, csr)
		}
	}
	serial, err := uartbridge.OpenSerial(port, baud, timeout)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"port": port, "baudrate": baud}).Debug("connected")
	s.serial, s.client = serial, uartbridge.NewClient(serial)
	return s, nil
}

func (s *session) Close() error { return s.serial.Close() }

// addr resolves a numeric address or a register name.
//
func (s *session) addr(arg string) (uint32, error) {
	return parseAddr(arg, s.regs)
}

func parseAddr(arg string, regs *soc.RegisterMap) (uint32, error) {
	if v, err := strconv.ParseUint(arg, 0, 32); err == nil {
		if v&3 != 0 {
			return 0, errors.Errorf("address %s is not word aligned", arg)
		}
		return uint32(v), nil
	}
	if regs != nil {
		if e, ok := regs.Lookup(arg); ok {
			return e.Addr, nil
		}
	}
	return 0, errors.Errorf("invalid address or unknown register %q", arg)
}

func runRead(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(s))
	addr, err := s.addr(args[0])
	if err != nil {
		return err
	}
	n := 1
	if len(args) > 1 {
		if n, err = strconv.Atoi(args[1]); err != nil || n < 1 {
			return errors.Errorf("invalid word count %q", args[1])
		}
	}
	words, err := s.client.ReadN(addr, n)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for i, v := range words {
		fmt.Fprintf(w, "0x%08x: 0x%08x\n", addr+4*uint32(i), v)
	}
	return nil
}

func runWrite(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(s))
	addr, err := s.addr(args[0])
	if err != nil {
		return err
	}
	words := make([]uint32, len(args)-1)
	for i, a := range args[1:] {
		v, err := strconv.ParseUint(a, 0, 32)
		if err != nil {
			return errors.Errorf("invalid value %q", a)
		}
		words[i] = uint32(v)
	}
	return s.client.WriteN(addr, words)
}

// parseTrigger adds the condition NAME=VALUE[/MASK] to t.
//
func parseTrigger(t *scope.Trigger, cond string) error {
	i := strings.IndexByte(cond, '=')
	if i <= 0 {
		return errors.Errorf("invalid trigger condition %q", cond)
	}
	name, val := cond[:i], cond[i+1:]
	mask := ^uint64(0)
	if j := strings.IndexByte(val, '/'); j >= 0 {
		m, err := strconv.ParseUint(val[j+1:], 0, 64)
		if err != nil {
			return errors.Errorf("invalid trigger mask in %q", cond)
		}
		mask, val = m, val[:j]
	}
	v, err := strconv.ParseUint(val, 0, 64)
	if err != nil {
		return errors.Errorf("invalid trigger value in %q", cond)
	}
	return t.Match(name, v, mask)
}

func runCapture(cmd *cobra.Command, _ []string) (err error) {
	f := cmd.Flags()
	desc, _ := f.GetString("analyzer")
	conds, _ := f.GetStringArray("trigger")
	post, _ := f.GetInt("post")
	polls, _ := f.GetInt("polls")
	out, _ := f.GetString("vcd")

	fd, err := os.Open(desc)
	if err != nil {
		return errors.Wrap(err, "open analyzer description")
	}
	d, err := scope.ReadDescription(bufio.NewReader(fd))
	fd.Close()
	if err != nil {
		return errors.Wrap(err, desc)
	}
	t := scope.NewTrigger(d.Probes)
	for _, c := range conds {
		if err = parseTrigger(t, c); err != nil {
			return err
		}
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(s))
	drv := scope.NewDriver(s.client, d.Base, d.Probes)
	depth, err := drv.Check()
	if err != nil {
		return err
	}
	if depth != d.Depth {
		return errors.Errorf("%s: depth mismatch: device has %d samples, description %d", d.Name, depth, d.Depth)
	}
	if post >= 0 {
		if err = drv.SetPostTrigger(post); err != nil {
			return err
		}
	}
	if err = drv.SetTrigger(t); err != nil {
		return err
	}
	if err = drv.Arm(); err != nil {
		return err
	}
	log.WithField("analyzer", d.Name).Info("armed, waiting for trigger")
	if err = drv.Wait(polls); err != nil {
		return err
	}
	c, err := drv.Upload()
	if err != nil {
		return err
	}
	var period uint64 = 1
	if s.regs != nil && s.regs.ClockFreq != 0 && s.regs.ClockFreq <= 1e9 {
		period = 1e9 / s.regs.ClockFreq
	}
	vf, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create VCD file")
	}
	defer multierr.AppendInvoke(&err, multierr.Close(vf))
	if err = c.WriteVCD(vf, "1ns", period); err != nil {
		return errors.Wrap(err, out)
	}
	log.WithFields(log.Fields{"samples": len(c.Samples), "trigger": c.TriggerPos, "file": out}).Info("capture done")
	return nil
}
