package model

import (
	"fmt"
	"strconv"
)

// MessageType is the one byte tag that introduces every record of a ULog file.
type MessageType byte

// Record tags. The file header is not a tagged record; TypeHeader only identifies the Header
// message and never appears on the wire.
const (
	TypeHeader             MessageType = 0
	TypeFlagBits           MessageType = 'B'
	TypeFormat             MessageType = 'F'
	TypeInfo               MessageType = 'I'
	TypeMultiInfo          MessageType = 'M'
	TypeParameter          MessageType = 'P'
	TypeDefaultParameter   MessageType = 'Q'
	TypeAddSubscription    MessageType = 'A'
	TypeRemoveSubscription MessageType = 'R'
	TypeData               MessageType = 'D'
	TypeLogging            MessageType = 'L'
	TypeLoggingTagged      MessageType = 'C'
	TypeSync               MessageType = 'S'
	TypeDropout            MessageType = 'O'
)

func (mt MessageType) String() string {
	if mt == TypeHeader {
		return "header"
	}
	if mt >= 0x20 && mt < 0x7F {
		return string(rune(mt))
	}
	return "0x" + strconv.FormatUint(uint64(mt), 16)
}

// Magic is the first seven bytes of every ULog file.
var Magic = [7]byte{0x55, 0x4C, 0x6F, 0x67, 0x01, 0x12, 0x35}

// HeaderSize is the size of the file header: magic, version byte and start timestamp.
const HeaderSize = 16

// FlagBitsSize is the payload size of a flag bits record.
const FlagBitsSize = 40

// Message is one item of a decoded ULog stream. The concrete types are *Header, *FlagBits,
// *SchemaDefinition, *LoggedData, *AddSubscription, *Info, *MultiInfo, *Parameter,
// *DefaultParameter, *LoggedString, *Dropout, and the two passthrough types *Unhandled and
// *Ignored which carry the record payload verbatim.
type Message interface {
	// MessageType returns the record tag the message is encoded under.
	MessageType() MessageType
	String() string

	message()
}

// Header is the fixed sixteen byte preamble of a file.
type Header struct {
	Version uint8
	// Timestamp is the logging start time in microseconds.
	Timestamp uint64
}

// MessageType returns TypeHeader.
func (*Header) MessageType() MessageType { return TypeHeader }

func (h *Header) String() string {
	return fmt.Sprintf("Header{version=%d, timestamp=%d}", h.Version, h.Timestamp)
}

func (*Header) message() {}

// FlagBits announces the compatibility requirements of a file.
type FlagBits struct {
	Compat   [8]byte
	Incompat [8]byte
	// AppendedOffsets are the file offsets of data appended after the log. Zero means unused.
	AppendedOffsets [3]uint64
}

// MessageType returns TypeFlagBits.
func (*FlagBits) MessageType() MessageType { return TypeFlagBits }

// HasDefaultParameters reports compat bit 0: the file contains default parameter records.
func (fb *FlagBits) HasDefaultParameters() bool {
	return fb.Compat[0]&0x1 != 0
}

// HasDataAppended reports incompat bit 0: AppendedOffsets are in use.
func (fb *FlagBits) HasDataAppended() bool {
	return fb.Incompat[0]&0x1 != 0
}

// UnknownIncompat reports whether any incompat bit other than the appended data bit is set.
func (fb *FlagBits) UnknownIncompat() bool {
	if fb.Incompat[0]&^0x1 != 0 {
		return true
	}
	for _, b := range fb.Incompat[1:] {
		if b != 0 {
			return true
		}
	}
	return false
}

// ReadLimit returns the smallest non-zero appended offset when appended data is flagged, or zero.
func (fb *FlagBits) ReadLimit() uint64 {
	if !fb.HasDataAppended() {
		return 0
	}
	var ret uint64
	for _, offset := range fb.AppendedOffsets {
		if offset != 0 && (ret == 0 || offset < ret) {
			ret = offset
		}
	}
	return ret
}

func (fb *FlagBits) String() string {
	return fmt.Sprintf("FlagBits{compat=%x, incompat=%x, appended=%v}", fb.Compat, fb.Incompat, fb.AppendedOffsets)
}

func (*FlagBits) message() {}

// SchemaDefinition is a format record.
type SchemaDefinition struct {
	Schema *Schema
}

// MessageType returns TypeFormat.
func (*SchemaDefinition) MessageType() MessageType { return TypeFormat }

func (sd *SchemaDefinition) String() string {
	return "Format{" + sd.Schema.Definition() + "}"
}

func (*SchemaDefinition) message() {}

// Subscription binds a message id to a schema name and instance index.
type Subscription struct {
	MsgID       uint16
	MultiID     uint8
	MessageName string
}

func (s Subscription) String() string {
	return fmt.Sprintf("%s[%d] (msg_id=%d)", s.MessageName, s.MultiID, s.MsgID)
}

// AddSubscription is an add subscription record.
type AddSubscription struct {
	Subscription
}

// MessageType returns TypeAddSubscription.
func (*AddSubscription) MessageType() MessageType { return TypeAddSubscription }

func (as *AddSubscription) String() string {
	return "AddSubscription{" + as.Subscription.String() + "}"
}

func (*AddSubscription) message() {}

// LoggedData is a decoded data record.
type LoggedData struct {
	Timestamp uint64
	MsgID     uint16
	Data      *Record
}

// MessageType returns TypeData.
func (*LoggedData) MessageType() MessageType { return TypeData }

func (ld *LoggedData) String() string {
	return fmt.Sprintf("Data{t=%d, msg_id=%d, %s}", ld.Timestamp, ld.MsgID, ld.Data)
}

func (*LoggedData) message() {}

// Info is a key/value information record, e.g. "char[12] sys_name".
type Info struct {
	Key   string
	Type  TypeExpr
	Value FieldValue
}

// MessageType returns TypeInfo.
func (*Info) MessageType() MessageType { return TypeInfo }

func (i *Info) String() string {
	return fmt.Sprintf("Info{%s %s=%s}", i.Type, i.Key, i.Value)
}

func (*Info) message() {}

// MultiInfo is an information record whose value may span several records with the same key.
type MultiInfo struct {
	Continued bool
	Key       string
	Type      TypeExpr
	Value     FieldValue
}

// MessageType returns TypeMultiInfo.
func (*MultiInfo) MessageType() MessageType { return TypeMultiInfo }

func (mi *MultiInfo) String() string {
	return fmt.Sprintf("MultiInfo{continued=%t, %s %s=%s}", mi.Continued, mi.Type, mi.Key, mi.Value)
}

func (*MultiInfo) message() {}

// Parameter is a parameter record. Value is either a Scalar[int32] or a Scalar[float32].
type Parameter struct {
	Key   string
	Type  TypeExpr
	Value FieldValue
}

// MessageType returns TypeParameter.
func (*Parameter) MessageType() MessageType { return TypeParameter }

func (p *Parameter) String() string {
	return fmt.Sprintf("Parameter{%s=%s}", p.Key, p.Value)
}

func (*Parameter) message() {}

// Default parameter type bits.
const (
	DefaultSystemWide    uint8 = 1 << 0
	DefaultConfiguration uint8 = 1 << 1
)

// DefaultParameter is the default value of a parameter. Value is either a Scalar[int32] or a
// Scalar[float32].
type DefaultParameter struct {
	DefaultTypes uint8
	Key          string
	Type         TypeExpr
	Value        FieldValue
}

// MessageType returns TypeDefaultParameter.
func (*DefaultParameter) MessageType() MessageType { return TypeDefaultParameter }

// SystemWide reports whether this is the system wide default.
func (dp *DefaultParameter) SystemWide() bool {
	return dp.DefaultTypes&DefaultSystemWide != 0
}

// Configuration reports whether this is the default of the current configuration.
func (dp *DefaultParameter) Configuration() bool {
	return dp.DefaultTypes&DefaultConfiguration != 0
}

func (dp *DefaultParameter) String() string {
	return fmt.Sprintf("DefaultParameter{types=%02b, %s=%s}", dp.DefaultTypes, dp.Key, dp.Value)
}

func (*DefaultParameter) message() {}

// LogLevel is the syslog style severity of a logged string, encoded as an ASCII digit.
type LogLevel byte

// Log levels, most severe first.
const (
	LevelEmerg   LogLevel = '0'
	LevelAlert   LogLevel = '1'
	LevelCrit    LogLevel = '2'
	LevelErr     LogLevel = '3'
	LevelWarning LogLevel = '4'
	LevelNotice  LogLevel = '5'
	LevelInfo    LogLevel = '6'
	LevelDebug   LogLevel = '7'
)

var logLevelNames = [...]string{"EMERG", "ALERT", "CRIT", "ERR", "WARNING", "NOTICE", "INFO", "DEBUG"}

// Valid reports whether the level is one of '0' through '7'.
func (l LogLevel) Valid() bool {
	return l >= LevelEmerg && l <= LevelDebug
}

func (l LogLevel) String() string {
	if !l.Valid() {
		return "LogLevel(" + strconv.Itoa(int(l)) + ")"
	}
	return logLevelNames[l-LevelEmerg]
}

// LoggedString is a text log record. Tag is set for tagged records.
type LoggedString struct {
	Level     LogLevel
	Tag       *uint16
	Timestamp uint64
	Text      string
}

// MessageType returns TypeLoggingTagged for tagged strings and TypeLogging otherwise.
func (ls *LoggedString) MessageType() MessageType {
	if ls.Tag != nil {
		return TypeLoggingTagged
	}
	return TypeLogging
}

func (ls *LoggedString) String() string {
	if ls.Tag != nil {
		return fmt.Sprintf("Log{%s t=%d tag=%d %q}", ls.Level, ls.Timestamp, *ls.Tag, ls.Text)
	}
	return fmt.Sprintf("Log{%s t=%d %q}", ls.Level, ls.Timestamp, ls.Text)
}

func (*LoggedString) message() {}

// Dropout marks a gap in logging of Duration milliseconds.
type Dropout struct {
	Duration uint16
}

// MessageType returns TypeDropout.
func (*Dropout) MessageType() MessageType { return TypeDropout }

func (d *Dropout) String() string {
	return fmt.Sprintf("Dropout{%dms}", d.Duration)
}

func (*Dropout) message() {}

// Unhandled is a record the parser does not decode. Raw is the complete payload.
type Unhandled struct {
	Tag MessageType
	Raw []byte
}

// MessageType returns the original record tag.
func (u *Unhandled) MessageType() MessageType { return u.Tag }

func (u *Unhandled) String() string {
	return fmt.Sprintf("Unhandled{%s, %d bytes}", u.Tag, len(u.Raw))
}

func (*Unhandled) message() {}

// Ignored is a record excluded by the subscription allow list. Raw is the complete payload.
type Ignored struct {
	Tag MessageType
	Raw []byte
}

// MessageType returns the original record tag.
func (i *Ignored) MessageType() MessageType { return i.Tag }

// MsgID returns the message id a data record was logged under.
func (i *Ignored) MsgID() (uint16, bool) {
	if i.Tag != TypeData || len(i.Raw) < 2 {
		return 0, false
	}
	return uint16(i.Raw[0]) | uint16(i.Raw[1])<<8, true
}

func (i *Ignored) String() string {
	return fmt.Sprintf("Ignored{%s, %d bytes}", i.Tag, len(i.Raw))
}

func (*Ignored) message() {}

