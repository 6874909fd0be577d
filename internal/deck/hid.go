package deck

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/karalabe/hid"
)

const (
	// elgatoVendorID is the USB vendor id shared by all Stream Decks.
	elgatoVendorID = 0x0fd9

	numKeys = 15

	// keyDataOffset is where key states start in a v2 input report
	// (report id + 3 header bytes).
	keyDataOffset = 4

	// Image uploads are chunked into 1024-byte output reports with an
	// 8-byte header each.
	imageReportSize   = 1024
	imageHeaderSize   = 8
	imagePayloadSize  = imageReportSize - imageHeaderSize
	featureReportSize = 32

	imageJPEGQuality = 95
)

// productIDs are the 15-key 72x72 models speaking the v2 protocol.
var productIDs = []uint16{
	0x006d, // Stream Deck v2
	0x0080, // Stream Deck MK.2
}

// HIDTransport opens the first attached Stream Deck over raw USB HID.
type HIDTransport struct{}

// Open enumerates known vendor/product signatures and opens the first match.
func (HIDTransport) Open() (Device, error) {
	for _, pid := range productIDs {
		infos, _ := hid.Enumerate(elgatoVendorID, pid)
		if len(infos) == 0 {
			continue
		}
		dev, err := infos[0].Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open device %04x:%04x: %w", elgatoVendorID, pid, err)
		}
		return &hidDevice{dev: dev, serial: infos[0].Serial}, nil
	}
	return nil, ErrNoDevice
}

// hidDevice implements the v2 wire protocol: key state input reports, JPEG
// image upload on report 0x02, brightness/reset feature reports on 0x03.
type hidDevice struct {
	dev    hid.Device
	serial string

	// writeMu serializes image and feature writes; reads stay on the
	// session's poll goroutine.
	writeMu sync.Mutex
}

func (d *hidDevice) Serial() string { return d.serial }

func (d *hidDevice) Keys() int { return numKeys }

func (d *hidDevice) ReadKeys() ([]bool, error) {
	buf := make([]byte, 512)
	n, err := d.dev.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("hid read failed: %w", err)
	}
	if n < keyDataOffset+numKeys || buf[0] != 0x01 {
		// Not a key state report.
		return nil, nil
	}
	states := make([]bool, numKeys)
	for i := 0; i < numKeys; i++ {
		states[i] = buf[keyDataOffset+i] != 0
	}
	return states, nil
}

func (d *hidDevice) SetImage(key int, img image.Image) error {
	if key < 0 || key >= numKeys {
		return ErrInvalidKey
	}

	// The v2 panels draw images rotated 180 degrees.
	face := imaging.Rotate180(img)
	if face.Bounds().Dx() != 72 || face.Bounds().Dy() != 72 {
		face = imaging.Resize(face, 72, 72, imaging.Lanczos)
	}

	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, face, &jpeg.Options{Quality: imageJPEGQuality}); err != nil {
		return fmt.Errorf("failed to encode key image: %w", err)
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	payload := encoded.Bytes()
	for page := 0; len(payload) > 0; page++ {
		chunk := len(payload)
		if chunk > imagePayloadSize {
			chunk = imagePayloadSize
		}
		last := byte(0)
		if chunk == len(payload) {
			last = 1
		}

		report := make([]byte, imageReportSize)
		report[0] = 0x02
		report[1] = 0x07
		report[2] = byte(key)
		report[3] = last
		report[4] = byte(chunk)
		report[5] = byte(chunk >> 8)
		report[6] = byte(page)
		report[7] = byte(page >> 8)
		copy(report[imageHeaderSize:], payload[:chunk])

		if _, err := d.dev.Write(report); err != nil {
			return fmt.Errorf("failed to write image chunk %d: %w", page, err)
		}
		payload = payload[chunk:]
	}
	return nil
}

func (d *hidDevice) SetBrightness(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	report := make([]byte, featureReportSize)
	report[0] = 0x03
	report[1] = 0x08
	report[2] = byte(percent)

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if _, err := d.dev.SendFeatureReport(report); err != nil {
		return fmt.Errorf("failed to set brightness: %w", err)
	}
	return nil
}

func (d *hidDevice) Reset() error {
	report := make([]byte, featureReportSize)
	report[0] = 0x03
	report[1] = 0x02

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if _, err := d.dev.SendFeatureReport(report); err != nil {
		return fmt.Errorf("failed to reset device: %w", err)
	}
	return nil
}

func (d *hidDevice) Close() error {
	return d.dev.Close()
}
