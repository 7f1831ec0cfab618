package constants

// Account Protocol Constants
//
// Wire-level constants of the client account protocol and of the internal
// realm channel. Field offsets are absolute and must not drift: the client
// writes the credential packet as a flat struct.

// Client Packet Types (little-endian uint16 at offset 2)
const (
	// PacketTypeMsgAccount is the credential packet sent by the client loader
	PacketTypeMsgAccount = 1086

	// PacketTypeMsgConnectEx is the login answer (rejection or realm redirect)
	PacketTypeMsgConnectEx = 1055
)

// Packet Structure Constants
const (
	// PacketHeaderSize is the length + type header (2 × uint16 LE)
	PacketHeaderSize = 4

	// PacketLengthSize is the size of the inclusive length prefix
	PacketLengthSize = 2

	// MaxClientPacketSize caps a single client packet, length prefix included
	MaxClientPacketSize = 1024

	// RealmPacketHeaderSize is the length prefix of realm channel packets
	RealmPacketHeaderSize = 2

	// PacketChecksumSize is the XOR checksum size of realm channel packets (32-bit)
	PacketChecksumSize = 4

	// PacketPaddingAlign is the padding alignment for Blowfish encrypted realm packets
	PacketPaddingAlign = 8

	// PacketBufferPadding is the extra buffer space for checksum and padding
	PacketBufferPadding = 16
)

// MsgAccount Packet Structure Constants
//
// MsgAccount layout (offsets from packet start):
//
//	[length 2][type 2][username 32][gap 36]
//	[password size 1][password cipher 63]
//	[realm 16][mac 12][gap 136]
//	[effect hash 33][magic hash 33][binary hash 33][gap 66]
//	[device id length 2 (int16 LE)][device id ...]
const (
	MsgAccountUsernameOffset = 4
	MsgAccountUsernameSize   = 32

	MsgAccountPasswordSizeOffset = 72
	MsgAccountPasswordOffset     = 73
	MsgAccountPasswordSize       = 63

	MsgAccountRealmOffset = 136
	MsgAccountRealmSize   = 16

	MsgAccountMACOffset = 152
	MsgAccountMACSize   = 12

	MsgAccountHashSize         = 33
	MsgAccountEffectHashOffset = 300
	MsgAccountMagicHashOffset  = 333
	MsgAccountBinaryHashOffset = 366

	// MsgAccountDeviceIDLengthOffset is the offset of the int16 LE device id length
	MsgAccountDeviceIDLengthOffset = 465

	// MsgAccountDeviceIDOffset is where the variable device id starts
	MsgAccountDeviceIDOffset = 467

	// MsgAccountMinSize is the smallest buffer that holds every fixed field
	MsgAccountMinSize = MsgAccountDeviceIDOffset
)

// MsgConnectEx Packet Structure Constants
//
// Rejection: [length 2][type 2][zero 4][code 4]
// Redirect:  [length 2][type 2][token 8][host 16][port 4]
const (
	MsgConnectExRejectSize   = 12
	MsgConnectExRedirectSize = 32
	MsgConnectExHostSize     = 16
)

// Realm Channel Opcodes
//
// Realm → Login
const (
	RealmOpcodeRealmAuth          = 0x01
	RealmOpcodeLoginExchangeReply = 0x02
)

// Login → Realm
const (
	LoginOpcodeAuthResponse  = 0x01
	LoginOpcodeLoginExchange = 0x02
)

// Buffer Pool Size Constants
const (
	// DefaultReadBufSize is the default read buffer size for client connections
	DefaultReadBufSize = MaxClientPacketSize

	// RealmListenerSendBufSize is the send buffer size for realm connections
	RealmListenerSendBufSize = 1024

	// RealmListenerReadBufSize is the read buffer size for realm connections
	RealmListenerReadBufSize = 8192
)

// Server Default Constants
const (
	// DefaultUserTTLSeconds is how long a pending login waits for the realm answer
	DefaultUserTTLSeconds = 30
)
