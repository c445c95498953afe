package scale

import (
	"bytes"
	"encoding/binary"
	"strings"
	"time"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

// Defaults describes the profile advertised when no users exist. The same
// values fill in fields a stored user has left empty.
type Defaults struct {
	Name         string
	Height       int
	Birthyear    int
	Gender       string
	MinTolerance int
	MaxTolerance int
}

func DefaultDefaults() Defaults {
	return Defaults{
		Name:         "EXAMPLE",
		Height:       1900,
		Birthyear:    1970,
		Gender:       "m",
		MinTolerance: 89000,
		MaxTolerance: 97000,
	}
}

// User returns the synthetic user advertised to the device when no users exist
func (d Defaults) User() measurement.User {
	return measurement.User{
		Name:         d.Name,
		Height:       measurement.IntPointer(d.Height),
		Birthyear:    measurement.IntPointer(d.Birthyear),
		Gender:       measurement.StringPointer(d.Gender),
		MinTolerance: measurement.IntPointer(d.MinTolerance),
		MaxTolerance: measurement.IntPointer(d.MaxTolerance),
	}
}

// Profile is one entry of a profile reply
type Profile struct {
	Index        uint32
	Count        uint32
	Name         [NameLength]byte
	MinTolerance uint32
	MaxTolerance uint32
	Age          uint32
	Gender       uint8
	Height       uint32
}

// NewProfile builds the reply entry for u. Missing fields are taken from d.
func NewProfile(u measurement.User, index, count int, d Defaults, now time.Time) Profile {
	name := u.Name
	if name == "" {
		name = d.Name
	}
	birthyear := d.Birthyear
	if u.Birthyear != nil {
		birthyear = *u.Birthyear
	}
	gender := d.Gender
	if u.Gender != nil {
		gender = *u.Gender
	}
	height := d.Height
	if u.Height != nil {
		height = *u.Height
	}
	minTolerance := d.MinTolerance
	if u.MinTolerance != nil {
		minTolerance = *u.MinTolerance
	}
	maxTolerance := d.MaxTolerance
	if u.MaxTolerance != nil {
		maxTolerance = *u.MaxTolerance
	}
	return Profile{
		Index:        uint32(index),
		Count:        uint32(count),
		Name:         EncodeName(name),
		MinTolerance: unsigned(minTolerance),
		MaxTolerance: unsigned(maxTolerance),
		Age:          unsigned(now.Year() - birthyear),
		Gender:       GenderCode(gender),
		Height:       unsigned(height),
	}
}

func unsigned(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}

// GenderCode maps a gender to the code the device understands. Only the first
// letter counts and case is ignored.
func GenderCode(gender string) uint8 {
	if gender == "" {
		return GenderUnknown
	}
	switch gender[0] {
	case 'f', 'F':
		return GenderFemale
	case 'm', 'M':
		return GenderMale
	default:
		return GenderUnknown
	}
}

// EncodeName uppercases name and fits it into the fixed width name field,
// padding with spaces. Characters outside ASCII are replaced with '?'.
func EncodeName(name string) [NameLength]byte {
	var field [NameLength]byte
	for i := range field {
		field[i] = ' '
	}
	i := 0
	for _, r := range name {
		if i == NameLength {
			break
		}
		if r > 0x7f {
			r = '?'
		}
		field[i] = byte(r)
		i++
	}
	upper := strings.ToUpper(string(field[:]))
	copy(field[:], upper)
	return field
}

// DecodeName returns the name stored in a name field without padding
func DecodeName(field [NameLength]byte) string {
	return strings.TrimRight(string(field[:]), " ")
}

// MarshalBinary encodes the profile as a reply entry generated at ts
func (p Profile) MarshalBinary(ts time.Time) []byte {
	buf := make([]byte, ProfileEntrySize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], uint32(ts.Unix()))
	buf[4] = UnitKilograms
	buf[5] = StatusConfigured
	buf[6] = ReplyUnknownFlag
	le.PutUint32(buf[7:11], p.Count)
	le.PutUint32(buf[11:15], p.Index)
	// buf[15:31] reserved
	copy(buf[31:51], p.Name[:])
	le.PutUint32(buf[51:55], p.MinTolerance)
	le.PutUint32(buf[55:59], p.MaxTolerance)
	le.PutUint32(buf[59:63], p.Age)
	buf[63] = p.Gender
	le.PutUint32(buf[64:68], p.Height)
	for i, v := range ReservedTrailer {
		le.PutUint32(buf[68+i*4:72+i*4], v)
	}
	return buf
}

// Profiles builds the reply entries for users in stored order. An empty user
// list yields the single default profile.
func Profiles(users []measurement.User, d Defaults, now time.Time) []Profile {
	if len(users) == 0 {
		users = []measurement.User{d.User()}
	}
	profiles := make([]Profile, len(users))
	for i, u := range users {
		profiles[i] = NewProfile(u, i+1, len(users), d, now)
	}
	return profiles
}

// EncodeReply builds the complete profile reply sent back to the scale
func EncodeReply(users []measurement.User, d Defaults, now time.Time) []byte {
	profiles := Profiles(users, d, now)
	buf := new(bytes.Buffer)
	for _, p := range profiles {
		buf.Write(p.MarshalBinary(now))
	}
	body := buf.Bytes()
	trailer := make([]byte, 4)
	binary.LittleEndian.PutUint16(trailer[0:2], Checksum(body))
	binary.LittleEndian.PutUint16(trailer[2:4], PacketSize(len(profiles)))
	return append(body, trailer...)
}
