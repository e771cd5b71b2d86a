package coordinator

import "reflect"

const (
	LoginTag uint8 = iota
	CommandTag
	ResponseTag
	NotificationTag
)

var login Login
var command Command
var response Response
var notification Notification

// ReflectedTypesMap maps every tag to the type of its body. Clients decode with it too.
var ReflectedTypesMap = map[uint8]reflect.Type{
	LoginTag:        reflect.TypeOf(login),
	CommandTag:      reflect.TypeOf(command),
	ResponseTag:     reflect.TypeOf(response),
	NotificationTag: reflect.TypeOf(notification),
}

// Command kinds.
const (
	KindPropose   = "propose"
	KindApprove   = "approve"
	KindView      = "view"
	KindVerify    = "verify"
	KindReport    = "report"
	KindReconcile = "reconcile"
	KindAdjust    = "adjust"
	KindList      = "list"
)
