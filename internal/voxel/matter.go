package voxel

import "fmt"

// Matter — абстрактный тег материала грани.
// MatterNone означает "грань не заполнена".
type Matter uint8

const (
	MatterNone Matter = iota
	MatterDirt
	MatterWood
	MatterStone
	MatterSand
)

var matterNames = map[Matter]string{
	MatterNone:  "",
	MatterDirt:  "dirt",
	MatterWood:  "wood",
	MatterStone: "stone",
	MatterSand:  "sand",
}

// IsSet сообщает, что материал задан
func (m Matter) IsSet() bool { return m != MatterNone }

// Valid проверяет, что значение входит в перечисление
func (m Matter) Valid() bool {
	_, ok := matterNames[m]
	return ok
}

// String возвращает имя материала
func (m Matter) String() string {
	if name, ok := matterNames[m]; ok {
		if name == "" {
			return "none"
		}
		return name
	}
	return fmt.Sprintf("matter(%d)", uint8(m))
}

// MarshalText реализует encoding.TextMarshaler
func (m Matter) MarshalText() ([]byte, error) {
	name, ok := matterNames[m]
	if !ok {
		return nil, fmt.Errorf("неизвестный материал %d", uint8(m))
	}
	return []byte(name), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler
func (m *Matter) UnmarshalText(text []byte) error {
	parsed, err := ParseMatter(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMatter разбирает имя материала; "" и "none" дают MatterNone
func ParseMatter(name string) (Matter, error) {
	if name == "none" {
		return MatterNone, nil
	}
	for m, n := range matterNames {
		if n == name {
			return m, nil
		}
	}
	return MatterNone, fmt.Errorf("неизвестный материал %q", name)
}
