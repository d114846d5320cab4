package voxel

import "fmt"

// Corner описывает прочность узла сетки.
// Нулевое значение — Air: отсутствующий в чанке узел ведёт себя как воздух.
type Corner uint8

const (
	Air Corner = iota
	Weak
	Strong
)

// IsAir сообщает, что узел не несёт геометрии
func (c Corner) IsAir() bool { return c == Air }

// IsWeak сообщает, что узел срезан фаской
func (c Corner) IsWeak() bool { return c == Weak }

// IsStrong сообщает, что узел сплошной
func (c Corner) IsStrong() bool { return c == Strong }

// Valid проверяет, что значение входит в перечисление
func (c Corner) Valid() bool { return c <= Strong }

// String возвращает строковое представление прочности
func (c Corner) String() string {
	switch c {
	case Air:
		return "air"
	case Weak:
		return "weak"
	case Strong:
		return "strong"
	default:
		return fmt.Sprintf("corner(%d)", uint8(c))
	}
}

// MarshalText реализует encoding.TextMarshaler (JSON, YAML)
func (c Corner) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("неизвестная прочность угла %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler
func (c *Corner) UnmarshalText(text []byte) error {
	switch string(text) {
	case "air", "":
		*c = Air
	case "weak":
		*c = Weak
	case "strong":
		*c = Strong
	default:
		return fmt.Errorf("неизвестная прочность угла %q", string(text))
	}
	return nil
}
