/*
DESCRIPTION
  controls.go exposes the V4L2 camera controls (brightness, exposure,
  gain and the like) of the underlying capture device: enumerate, read
  and write, and an all-at-once refresh back to their driver defaults.
  Driven by raw VIDIOC_QUERYCTRL/VIDIOC_G_CTRL/VIDIOC_S_CTRL ioctls,
  since go4vl exposes no control API of its own.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package capture

import (
	"bytes"
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// V4L2 control ioctls and the classic (non-extended) user control ID
// range, from linux/videodev2.h.
const (
	vidiocQueryCtrl = 0xc0445624
	vidiocGCtrl     = 0xc008561b
	vidiocSCtrl     = 0xc008561c

	v4l2CIDBase    = 0x00980900
	v4l2CIDLastP1  = 0x00980900 + 42

	ctrlFlagDisabled = 0x0001
	ctrlFlagInactive = 0x0010
)

// v4l2QueryCtrl mirrors struct v4l2_queryctrl.
type v4l2QueryCtrl struct {
	id           uint32
	typ          uint32
	name         [32]uint8
	minimum      int32
	maximum      int32
	step         int32
	defaultValue int32
	flags        uint32
	reserved     [2]uint32
}

// v4l2Control mirrors struct v4l2_control.
type v4l2Control struct {
	id    uint32
	value int32
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// ControlInfo describes one driver-exposed control and its current value.
type ControlInfo struct {
	ID                  uint32
	Name                string
	Value               int32
	Min, Max, Step, Def int32
	Disabled, Inactive  bool
}

// Controls enumerates every user-class control the driver reports, in ID
// order, skipping any ID the driver reports as not implemented (EINVAL).
// Controls the driver flags as disabled are skipped as well, so
// ControlInfo.Disabled is always false in the returned list.
func (s *Source) Controls() ([]ControlInfo, error) {
	fd := s.dev.Fd()
	var out []ControlInfo
	for id := uint32(v4l2CIDBase); id < v4l2CIDLastP1; id++ {
		qc := v4l2QueryCtrl{id: id}
		if err := ioctl(fd, vidiocQueryCtrl, unsafe.Pointer(&qc)); err != nil {
			if err == unix.EINVAL {
				continue
			}
			return nil, fmt.Errorf("capture: query control %#x: %w", id, err)
		}
		if qc.flags&ctrlFlagDisabled != 0 {
			continue
		}

		ctrl := v4l2Control{id: id}
		val := qc.defaultValue
		if err := ioctl(fd, vidiocGCtrl, unsafe.Pointer(&ctrl)); err == nil {
			val = ctrl.value
		}

		out = append(out, ControlInfo{
			ID:       id,
			Name:     controlName(qc.name),
			Value:    val,
			Min:      qc.minimum,
			Max:      qc.maximum,
			Step:     qc.step,
			Def:      qc.defaultValue,
			Disabled: qc.flags&ctrlFlagDisabled != 0,
			Inactive: qc.flags&ctrlFlagInactive != 0,
		})
	}
	return out, nil
}

func controlName(raw [32]uint8) string {
	n := bytes.IndexByte(raw[:], 0)
	if n < 0 {
		n = len(raw)
	}
	return string(raw[:n])
}

// SetControl writes value to the control identified by id.
func (s *Source) SetControl(id uint32, value int32) error {
	ctrl := v4l2Control{id: id, value: value}
	if err := ioctl(s.dev.Fd(), vidiocSCtrl, unsafe.Pointer(&ctrl)); err != nil {
		return fmt.Errorf("capture: set control %#x: %w", id, err)
	}
	return nil
}

// ResetControls writes every control's driver-reported default back.
func (s *Source) ResetControls() error {
	controls, err := s.Controls()
	if err != nil {
		return err
	}
	var firstErr error
	for _, c := range controls {
		if err := s.SetControl(c.ID, c.Def); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("capture: reset control %s: %w", c.Name, err)
		}
	}
	return firstErr
}
