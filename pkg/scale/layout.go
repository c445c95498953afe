package scale

// Upload layout, device to server. All integers are little-endian.
const (
	DeviceHeaderSize   = 30
	FirmwareHeaderSize = 16
	RecordSize         = 32
)

// Profile reply layout, server to device.
const (
	ProfileEntrySize = 100
	NameLength       = 20

	UnitKilograms    = 0x02
	StatusConfigured = 0x32
	ReplyUnknownFlag = 0x01

	GenderFemale  = 0x00
	GenderMale    = 0x02
	GenderUnknown = 0x34

	// ToleranceGrams is the half width of the weight band advertised for a user
	ToleranceGrams = 500

	packetSizeBase     = 0x19
	packetSizePerEntry = 0x4d
)

// ReservedTrailer terminates every profile entry. The device expects the
// seventh value to be 3.
var ReservedTrailer = [8]uint32{0, 0, 0, 0, 0, 0, 3, 0}

// PacketSize is the size the device expects to be declared for a reply
// carrying userCount profiles. It does not match the real length of the reply.
func PacketSize(userCount int) uint16 {
	return uint16(packetSizeBase + userCount*packetSizePerEntry)
}
