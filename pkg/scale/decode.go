package scale

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrTruncatedHeader         = errors.New("not enough bytes for protocol header")
	ErrTruncatedFirmwareHeader = errors.New("not enough bytes for firmware header")
)

type DeviceHeader struct {
	ProtocolVersion uint32
	BatteryPercent  uint32
	MAC             [6]byte
	AuthCode        [16]byte
}

type FirmwareHeader struct {
	FirmwareVersion  uint32
	Reserved         uint32
	DeviceTimestamp  uint32
	MeasurementCount uint32
}

// Record is one weighing as sent by the scale
type Record struct {
	RecordID         uint32
	Impedance        uint32
	WeightGrams      uint32
	DeviceTimestamp  uint32
	UserID           uint32
	BodyFatPrimary   uint32
	Covariate        uint32
	BodyFatSecondary uint32
}

// WeightKg returns the weight in kilograms rounded to grams
func (r Record) WeightKg() float64 {
	return WeightKg(r.WeightGrams)
}

// Upload is a decoded scale upload
type Upload struct {
	Device   DeviceHeader
	Firmware FirmwareHeader
	Records  []Record
	// Trailer holds the bytes after the last complete record. They are not validated.
	Trailer []byte
}

// First returns the record that gets stored for this upload
func (u Upload) First() (Record, bool) {
	if len(u.Records) == 0 {
		return Record{}, false
	}
	return u.Records[0], true
}

// WeightsKg returns the weights of all decoded records
func (u Upload) WeightsKg() []float64 {
	weights := make([]float64, len(u.Records))
	for i, r := range u.Records {
		weights[i] = r.WeightKg()
	}
	return weights
}

// Truncated reports whether the upload announced more records than it carried
func (u Upload) Truncated() bool {
	return uint32(len(u.Records)) < u.Firmware.MeasurementCount
}

// Decode parses a scale upload. A buffer that ends in the middle of the
// record list is not an error; the complete records are returned.
func Decode(buf []byte) (Upload, error) {
	var u Upload
	if len(buf) < DeviceHeaderSize {
		return u, ErrTruncatedHeader
	}
	u.Device = parseDeviceHeader(buf[:DeviceHeaderSize])
	buf = buf[DeviceHeaderSize:]
	if len(buf) < FirmwareHeaderSize {
		return u, ErrTruncatedFirmwareHeader
	}
	u.Firmware = parseFirmwareHeader(buf[:FirmwareHeaderSize])
	buf = buf[FirmwareHeaderSize:]
	for i := uint32(0); i < u.Firmware.MeasurementCount; i++ {
		if len(buf) < RecordSize {
			break
		}
		u.Records = append(u.Records, parseRecord(buf[:RecordSize]))
		buf = buf[RecordSize:]
	}
	u.Trailer = buf
	return u, nil
}

func parseDeviceHeader(buf []byte) DeviceHeader {
	var h DeviceHeader
	h.ProtocolVersion = binary.LittleEndian.Uint32(buf[0:4])
	h.BatteryPercent = binary.LittleEndian.Uint32(buf[4:8])
	copy(h.MAC[:], buf[8:14])
	copy(h.AuthCode[:], buf[14:30])
	return h
}

func parseFirmwareHeader(buf []byte) FirmwareHeader {
	return FirmwareHeader{
		FirmwareVersion:  binary.LittleEndian.Uint32(buf[0:4]),
		Reserved:         binary.LittleEndian.Uint32(buf[4:8]),
		DeviceTimestamp:  binary.LittleEndian.Uint32(buf[8:12]),
		MeasurementCount: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

func parseRecord(buf []byte) Record {
	return Record{
		RecordID:         binary.LittleEndian.Uint32(buf[0:4]),
		Impedance:        binary.LittleEndian.Uint32(buf[4:8]),
		WeightGrams:      binary.LittleEndian.Uint32(buf[8:12]),
		DeviceTimestamp:  binary.LittleEndian.Uint32(buf[12:16]),
		UserID:           binary.LittleEndian.Uint32(buf[16:20]),
		BodyFatPrimary:   binary.LittleEndian.Uint32(buf[20:24]),
		Covariate:        binary.LittleEndian.Uint32(buf[24:28]),
		BodyFatSecondary: binary.LittleEndian.Uint32(buf[28:32]),
	}
}

// WeightKg converts grams to kilograms. Grams are integral so the result
// already has at most three decimals.
func WeightKg(grams uint32) float64 {
	return float64(grams) / 1000
}

// WeightGrams converts kilograms back to whole grams
func WeightGrams(kg float64) int {
	return int(math.Round(kg * 1000))
}
