//go:build linux

package tun

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

// Linux TUN ioctl constants. golang.org/x/sys/unix does not export
// these (they are device-specific, not general syscall numbers), so
// they are defined here the way every Go TUN driver does.
const (
	ifNameSize  = 16
	iffTUN      = 0x0001
	iffNoPI     = 0x1000
	tunSetIff   = 0x400454ca // _IOW('T', 202, int)
)

type ifReq struct {
	Name  [ifNameSize]byte
	Flags uint16
	_     [22]byte
}

// LinuxTUN opens /dev/net/tun and creates (or attaches to) the named
// interface, optionally inside a separate network namespace — the
// generalization of the teacher's NCHANNEL "attach to a TNC channel at
// startup" step (src/nettnc.go, nettnc_init) to a kernel network
// device instead of a KISS-over-TCP socket.
type LinuxTUN struct {
	file *os.File
	name string
}

// OpenLinuxTUN creates interface name (or reuses it if it exists). If
// netnsName is non-empty the interface is moved into that namespace
// after creation.
func OpenLinuxTUN(name, netnsName string) (*LinuxTUN, error) {
	fd, err := unix.Open("/dev/net/tun", unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("tun: open /dev/net/tun: %w", err)
	}

	var req ifReq
	copy(req.Name[:], name)
	req.Flags = iffTUN | iffNoPI

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), tunSetIff, uintptr(unsafe.Pointer(&req))); errno != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("tun: TUNSETIFF %s: %w", name, errno)
	}

	if netnsName != "" {
		if err := moveToNamedNetns(name, netnsName); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}

	if link, err := netlink.LinkByName(name); err == nil {
		_ = netlink.LinkSetUp(link)
	}

	return &LinuxTUN{file: os.NewFile(uintptr(fd), "/dev/net/tun"), name: name}, nil
}

// moveToNamedNetns moves the interface into the named network
// namespace, following the lock-OS-thread-around-netns-switch pattern
// vishvananda/netns requires.
func moveToNamedNetns(ifName, netnsName string) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	if err != nil {
		return fmt.Errorf("tun: get current netns: %w", err)
	}
	defer origin.Close()
	defer netns.Set(origin)

	target, err := netns.GetFromName(netnsName)
	if err != nil {
		return fmt.Errorf("tun: open netns %q: %w", netnsName, err)
	}
	defer target.Close()

	link, err := netlink.LinkByName(ifName)
	if err != nil {
		return fmt.Errorf("tun: find link %q: %w", ifName, err)
	}
	return netlink.LinkSetNsFd(link, int(target))
}

func (t *LinuxTUN) ReadPacket(ctx context.Context) ([]byte, error) {
	buf := make([]byte, 65536)
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := t.file.Read(buf)
		done <- result{n, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return buf[:r.n], nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *LinuxTUN) WritePacket(data []byte) error {
	_, err := t.file.Write(data)
	return err
}

func (t *LinuxTUN) Close() error {
	return t.file.Close()
}
