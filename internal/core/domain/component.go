package domain

// Device is the Home Assistant device an entity belongs to. Derived devices
// point at the bridge through ViaDevice.
type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

// GenericSensor describes one published sensor or binary sensor.
type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing
	DeviceClass       string // voltage, current, power, energy, temperature, humidity, power_factor
	EntityCategory    string // diagnostic, config
	EnabledByDefault  *bool
	Icon              string
	// seconds without an update before the value is shown as unavailable, 0 keeps it forever
	ExpireAfter int
}

// GenericInputNumber is a duration Home Assistant can set through its command topic.
type GenericInputNumber struct {
	Device       Device
	Id           string
	DeviceId     string
	Key          string
	Name         string
	UniqueId     string
	Icon         string
	Max          float64
	Min          float64
	Step         float64
	Mode         string
	InitialValue float64
	Unit         string
}

// ExpiringSensors sets ExpireAfter on every sensor that does not have one.
func ExpiringSensors(sensors []GenericSensor, seconds int) []GenericSensor {
	for i := range sensors {
		if sensors[i].ExpireAfter == 0 {
			sensors[i].ExpireAfter = seconds
		}
	}
	return sensors
}
