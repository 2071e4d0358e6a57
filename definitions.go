package modbuscore

type FunctionCode uint8

// Data access function codes.
const (
	FCReadCoils                  FunctionCode = 0x01
	FCReadDiscreteInputs         FunctionCode = 0x02
	FCReadHoldingRegisters       FunctionCode = 0x03
	FCReadInputRegisters         FunctionCode = 0x04
	FCWriteSingleCoil            FunctionCode = 0x05
	FCWriteSingleRegister        FunctionCode = 0x06 // Holding register.
	FCWriteMultipleRegisters     FunctionCode = 0x10 // Holding registers.
	FCReadFileRecord             FunctionCode = 0x14
	FCWriteFileRecord            FunctionCode = 0x15
	FCMaskWriteRegister          FunctionCode = 0x16
	FCReadWriteMultipleRegisters FunctionCode = 0x17
	FCReadFIFOQueue              FunctionCode = 0x18
	FCWriteMultipleCoils         FunctionCode = 0x0F
)

// Diagnostic function codes.
const (
	FCReadExceptionStatus      FunctionCode = 0x07
	FCDiagnostic               FunctionCode = 0x08
	FCGetComEventCounter       FunctionCode = 0x0B
	FCGetComEventLog           FunctionCode = 0x0C
	FCReportServerID           FunctionCode = 0x11
	FCReadDeviceIdentification FunctionCode = 0x2B
)

// IsWrite returns true if fc is an exclusively write operation. Returns false if fc is a read/write operation.
func (fc FunctionCode) IsWrite() bool {
	return fc == FCWriteSingleCoil || fc == FCWriteSingleRegister ||
		fc == FCWriteMultipleCoils || fc == FCWriteMultipleRegisters ||
		fc == FCWriteFileRecord || fc == FCMaskWriteRegister
}

// IsRead returns true if fc is an exclusively read operation. Returns false if fc is a read/write operation.
func (fc FunctionCode) IsRead() bool {
	return fc == FCReadCoils || fc == FCReadDiscreteInputs ||
		fc == FCReadHoldingRegisters || fc == FCReadInputRegisters ||
		fc == FCReadFIFOQueue || fc == FCReadFileRecord
}

func (fc FunctionCode) String() (s string) {
	switch fc {
	case FCReadCoils:
		s = "read coils"
	case FCReadDiscreteInputs:
		s = "read discrete inputs"
	case FCReadHoldingRegisters:
		s = "read holding registers"
	case FCReadInputRegisters:
		s = "read input registers"
	case FCWriteSingleCoil:
		s = "write single coil"
	case FCWriteSingleRegister:
		s = "write single register"
	case FCWriteMultipleRegisters:
		s = "write multiple registers"
	case FCReadFileRecord:
		s = "read file record"
	case FCWriteFileRecord:
		s = "write file record"
	case FCMaskWriteRegister:
		s = "mask write register"
	case FCReadWriteMultipleRegisters:
		s = "read/write multiple registers"
	case FCReadFIFOQueue:
		s = "read FIFO queue"
	case FCWriteMultipleCoils:
		s = "write multiple coils"
	case FCReadExceptionStatus:
		s = "read exception status"
	case FCDiagnostic:
		s = "diagnostic"
	case FCGetComEventCounter:
		s = "get com event counter"
	case FCGetComEventLog:
		s = "get com event log"
	case FCReportServerID:
		s = "report server ID"
	case FCReadDeviceIdentification:
		s = "read device identification"
	default:
		s = "unknown function code"
	}
	return s
}

// Exception is a Modbus protocol exception code as carried in the final
// byte of an exception reply.
type Exception uint8

const (
	ExceptionNone Exception = iota
	ExceptionIllegalFunction
	ExceptionIllegalDataAddr
	ExceptionIllegalDataValue
	ExceptionServerDeviceFailure
	ExceptionAcknowledge
	ExceptionServerDeviceBusy
	_ // 0x07 unassigned.
	ExceptionMemoryParityError
)

// Error implements the error interface so exceptions can travel up
// collaborator call chains unchanged.
func (e Exception) Error() string { return "modbus exception: " + e.String() }

func (e Exception) String() (s string) {
	switch e {
	case ExceptionNone:
		s = "none"
	case ExceptionIllegalFunction:
		s = "illegal function"
	case ExceptionIllegalDataAddr:
		s = "illegal data address"
	case ExceptionIllegalDataValue:
		s = "illegal data value"
	case ExceptionServerDeviceFailure:
		s = "server device failure"
	case ExceptionAcknowledge:
		s = "acknowledge"
	case ExceptionServerDeviceBusy:
		s = "server device busy"
	case ExceptionMemoryParityError:
		s = "memory parity error"
	default:
		s = "unknown exception"
	}
	return s
}

// Protocol selects the framing variant understood by [ProcessFrame].
// The set is closed; switches over it are exhaustive so a future variant
// becomes a compile-time responsibility instead of a silent fallthrough.
type Protocol uint8

const (
	// ProtocolRTU frames carry no header and end in a CRC16 trailer.
	ProtocolRTU Protocol = iota
	// ProtocolTCP frames begin with the 6 byte MBAP prefix and carry no
	// checksum. Modbus UDP uses the identical framing.
	ProtocolTCP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolRTU:
		return "RTU"
	case ProtocolTCP:
		return "TCP/UDP"
	}
	return "unknown protocol"
}
