package blf

// objectType identifies the payload that follows a blockHeader. Numeric
// values match the object-type codes assigned by the Vector BLF format, as
// referenced by the switch in blf.c's record reader.
type objectType uint32

const (
	objTypeCANMessage         objectType = 1
	objTypeCANError           objectType = 2
	objTypeLogContainer       objectType = 10
	objTypeLINMessage         objectType = 11
	objTypeFlexRayData        objectType = 29
	objTypeFlexRayMessage     objectType = 30
	objTypeFlexRayRcvMessage  objectType = 36
	objTypeAppText            objectType = 65
	objTypeCANFDMessage       objectType = 50
	objTypeCANFDMessage64     objectType = 51
	objTypeEthernetFrame      objectType = 52
	objTypeCANErrorExt        objectType = 54
	objTypeCANFDError64       objectType = 58
	objTypeCANMessage2        objectType = 59
	objTypeWLANFrame          objectType = 66
	objTypeEthernetStatus     objectType = 75
	objTypeEthernetFrameEx    objectType = 81
	objTypeFlexRayRcvMessageEx objectType = 106
)

func (t objectType) String() string {
	switch t {
	case objTypeCANMessage:
		return "CAN_MESSAGE"
	case objTypeCANError:
		return "CAN_ERROR"
	case objTypeLogContainer:
		return "LOG_CONTAINER"
	case objTypeLINMessage:
		return "LIN_MESSAGE"
	case objTypeFlexRayData:
		return "FLEXRAY_DATA"
	case objTypeFlexRayMessage:
		return "FLEXRAY_MESSAGE"
	case objTypeFlexRayRcvMessage:
		return "FLEXRAY_RCVMESSAGE"
	case objTypeFlexRayRcvMessageEx:
		return "FLEXRAY_RCVMESSAGE_EX"
	case objTypeAppText:
		return "APP_TEXT"
	case objTypeCANFDMessage:
		return "CAN_FD_MESSAGE"
	case objTypeCANFDMessage64:
		return "CAN_FD_MESSAGE_64"
	case objTypeEthernetFrame:
		return "ETHERNET_FRAME"
	case objTypeCANErrorExt:
		return "CAN_ERROR_EXT"
	case objTypeCANFDError64:
		return "CAN_FD_ERROR_64"
	case objTypeCANMessage2:
		return "CAN_MESSAGE2"
	case objTypeWLANFrame:
		return "WLAN_FRAME"
	case objTypeEthernetStatus:
		return "ETHERNET_STATUS"
	case objTypeEthernetFrameEx:
		return "ETHERNET_FRAME_EX"
	default:
		return "UNKNOWN"
	}
}
