package domain

import (
	"github.com/berfenger/devstate2mqtt/pkg/sunspec_modbus"

	"github.com/asynkron/protoactor-go/actor"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_METER        = "meter"
	ACTOR_ID_DERIVE       = "derive"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// ActorRef names the actor a response goes to when it is not the sender.
type ActorRef actor.PID

func RefOf(pid *actor.PID) *ActorRef {
	return (*ActorRef)(pid)
}

func (r *ActorRef) PID() *actor.PID {
	return (*actor.PID)(r)
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

// ReplyVia routes the response of a request to pid.
func ReplyVia(pid *actor.PID) ActorRequestMixIn {
	return ActorRequestMixIn{ReplyToRef: RefOf(pid)}
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

// ErrorResponse builds a response mixin carrying err.
func ErrorResponse(err error) ActorResponseMixIn {
	return ActorResponseMixIn{ResponseError: err}
}

type GetMeterInfoRequest struct {
	ActorRequestMixIn
}

type GetMeterInfoResponse struct {
	ActorResponseMixIn
	Meter *sunspec_modbus.ACMeterInfo
}

type GetMeterReadingRequest struct {
	ActorRequestMixIn
}

type GetMeterReadingResponse struct {
	ActorResponseMixIn
	Reading *sunspec_modbus.ACMeterPhaseReadings
}

// DeriveRequest asks the derive actor to recompute every device once.
type DeriveRequest struct {
	ActorRequestMixIn
	RunId string
}

type DeriveResponse struct {
	ActorResponseMixIn
	RunId   string
	Devices int
	Values  int
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
