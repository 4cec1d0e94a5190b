package render

import (
	"bytes"
	"fmt"
)

// ESC/POS control sequences. Thermal printers are line-oriented, so this
// projection ignores zone geometry: it emits text content in document order
// and one QR block, then cuts.
var (
	escInit        = []byte{0x1b, 0x40}
	escAlignLeft   = []byte{0x1b, 0x61, 0x00}
	escAlignCenter = []byte{0x1b, 0x61, 0x01}
	escBoldOn      = []byte{0x1b, 0x45, 0x01}
	escBoldOff     = []byte{0x1b, 0x45, 0x00}
	gsCutPartial   = []byte{0x1d, 0x56, 0x01}
)

// EncodeESCPOS projects the document into a thermal command stream.
func EncodeESCPOS(doc *Document) ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(escInit)

	qrEmitted := false
	for _, el := range doc.Elements {
		switch el.Type {
		case ZoneText:
			if el.Text == "" {
				continue
			}
			writeAlign(&buf, el.Style.Align)
			if el.Style.Bold {
				buf.Write(escBoldOn)
			}
			buf.WriteString(el.Text)
			buf.WriteByte('\n')
			if el.Style.Bold {
				buf.Write(escBoldOff)
			}
		case ZoneQR, ZoneBarcode:
			// both symbologies fall back to the printer's native QR block
			if el.Payload == "" || qrEmitted {
				continue
			}
			buf.Write(escAlignCenter)
			if err := writeQRBlock(&buf, el.Payload, doc.Settings.QRECLevel); err != nil {
				return nil, err
			}
			qrEmitted = true
		case ZoneImage, ZoneShape:
			// not representable on a line printer
		}
	}

	buf.WriteString("\n\n\n")
	buf.Write(gsCutPartial)

	return buf.Bytes(), nil
}

func writeAlign(buf *bytes.Buffer, align string) {
	if align == "center" {
		buf.Write(escAlignCenter)
		return
	}
	buf.Write(escAlignLeft)
}

// writeQRBlock emits the GS ( k model-2 QR sequence: model, module size,
// error correction, payload store, then print.
func writeQRBlock(buf *bytes.Buffer, payload, ecLevel string) error {
	if len(payload) > 7089 {
		return fmt.Errorf("qr payload too long for thermal block: %d bytes", len(payload))
	}

	// select model 2
	buf.Write([]byte{0x1d, 0x28, 0x6b, 0x04, 0x00, 0x31, 0x41, 0x32, 0x00})
	// module size 6 dots
	buf.Write([]byte{0x1d, 0x28, 0x6b, 0x03, 0x00, 0x31, 0x43, 0x06})
	// error correction level
	buf.Write([]byte{0x1d, 0x28, 0x6b, 0x03, 0x00, 0x31, 0x45, escposECByte(ecLevel)})

	// store payload: length covers the 3 function bytes plus the data
	n := len(payload) + 3
	buf.Write([]byte{0x1d, 0x28, 0x6b, byte(n & 0xff), byte(n >> 8), 0x31, 0x50, 0x30})
	buf.WriteString(payload)

	// print stored symbol
	buf.Write([]byte{0x1d, 0x28, 0x6b, 0x03, 0x00, 0x31, 0x51, 0x30})

	return nil
}

func escposECByte(level string) byte {
	switch level {
	case "L":
		return 0x30
	case "Q":
		return 0x32
	case "H":
		return 0x33
	default:
		return 0x31 // M
	}
}
