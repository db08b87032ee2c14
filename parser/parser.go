package parser

import (
	"bufio"
	"bytes"
	"io"
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/ulog/internal/bufpool"
	"go.viam.com/ulog/logging"
	"go.viam.com/ulog/model"
	"go.viam.com/ulog/schemadef"
	"go.viam.com/ulog/wire"
)

type state int

const (
	stateHeader state = iota
	stateDefinitions
	stateData
	stateEOF
	stateError
)

func (s state) String() string {
	switch s {
	case stateHeader:
		return "header"
	case stateDefinitions:
		return "definitions"
	case stateData:
		return "data"
	case stateEOF:
		return "eof"
	case stateError:
		return "error"
	default:
		return "unknown"
	}
}

// recordHeaderSize is the size of the length and tag preceding every record.
const recordHeaderSize = 3

// Parser reads a ULog file one message at a time. A Parser holds the formats and subscriptions
// seen so far and is not safe for concurrent use.
type Parser struct {
	src    *wire.Source
	cfg    Config
	logger logging.Logger
	pool   *bufpool.Pool
	// log carries the offset and type of the record being read.
	log logging.Logger

	state  state
	err    error
	header *model.Header

	schemas       map[string]*model.Schema
	subscriptions map[uint16]model.Subscription
	multiInstance map[string]struct{}

	// allowNames is nil when every message name is decoded.
	allowNames map[string]struct{}
	allowedIDs map[uint16]struct{}
}

// New returns a parser reading a ULog file from `reader`.
func New(reader io.Reader, cfg Config, logger logging.Logger) (*Parser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Parser{
		src:           wire.NewSource(bufio.NewReader(reader)),
		cfg:           cfg,
		logger:        logger,
		log:           logger,
		pool:          bufpool.New(),
		state:         stateHeader,
		schemas:       make(map[string]*model.Schema),
		subscriptions: make(map[uint16]model.Subscription),
		multiInstance: make(map[string]struct{}),
		allowNames:    cfg.allowSet(),
		allowedIDs:    make(map[uint16]struct{}),
	}, nil
}

// ParseBytes is a convenience for parsing an in memory log into a list of messages.
func ParseBytes(data []byte, cfg Config, logger logging.Logger) ([]model.Message, error) {
	p, err := New(bytes.NewReader(data), cfg, logger)
	if err != nil {
		return nil, err
	}
	return p.All()
}

// Next returns the next message. It returns `nil, io.EOF` at the end of the log. After any
// other error the parser is done and every later call returns the same error.
func (p *Parser) Next() (model.Message, error) {
	for {
		switch p.state {
		case stateEOF:
			return nil, io.EOF
		case stateError:
			return nil, p.err
		case stateHeader:
			header, err := p.readHeader()
			if err != nil {
				return nil, p.fail(err)
			}
			p.header = header
			p.state = stateDefinitions
			if p.cfg.IncludeHeader {
				return header, nil
			}
			continue
		case stateDefinitions, stateData:
		}

		if p.src.LimitReached() {
			p.logger.Debugw("Reached appended data, stopping", "offset", p.src.BytesRead())
			p.state = stateEOF
			return nil, io.EOF
		}

		msg, err := p.readRecord()
		if err != nil {
			return nil, p.fail(err)
		}
		if msg == nil {
			p.state = stateEOF
			return nil, io.EOF
		}
		return msg, nil
	}
}

// ForEach calls `fn` with every remaining message. It stops at the first error returned by
// either the parser or `fn`. Reaching the end of the log is not an error.
func (p *Parser) ForEach(fn func(model.Message) error) error {
	for {
		msg, err := p.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}

// All reads every remaining message. On error, the messages read before it are returned with
// the error.
func (p *Parser) All() ([]model.Message, error) {
	var ret []model.Message
	err := p.ForEach(func(msg model.Message) error {
		ret = append(ret, msg)
		return nil
	})
	return ret, err
}

// Header returns the file header once it has been read.
func (p *Parser) Header() (*model.Header, bool) {
	return p.header, p.header != nil
}

// Schema returns the format registered under `name`.
func (p *Parser) Schema(name string) (*model.Schema, bool) {
	schema, ok := p.schemas[name]
	return schema, ok
}

// Schemas returns the names of every registered format in sorted order.
func (p *Parser) Schemas() []string {
	names := lo.Keys(p.schemas)
	slices.Sort(names)
	return names
}

// Subscription returns the live subscription for `msgID`.
func (p *Parser) Subscription(msgID uint16) (model.Subscription, bool) {
	sub, ok := p.subscriptions[msgID]
	return sub, ok
}

// Subscriptions returns every live subscription ordered by msg_id.
func (p *Parser) Subscriptions() []model.Subscription {
	subs := lo.Values(p.subscriptions)
	slices.SortFunc(subs, func(a, b model.Subscription) int {
		return int(a.MsgID) - int(b.MsgID)
	})
	return subs
}

// MultiInstance returns the sorted names of messages logged under more than one instance.
func (p *Parser) MultiInstance() []string {
	names := lo.Keys(p.multiInstance)
	slices.Sort(names)
	return names
}

// BytesRead returns the number of bytes consumed from the input.
func (p *Parser) BytesRead() int64 {
	return p.src.BytesRead()
}

func (p *Parser) fail(err error) error {
	p.state = stateError
	p.err = err
	p.logger.Debugw("Parse failed", "offset", p.src.BytesRead(), "error", err)
	return err
}

func (p *Parser) readHeader() (*model.Header, error) {
	var raw [model.HeaderSize]byte
	n, err := p.src.ReadFull(raw[:])
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidHeader, "%v", err)
	}
	if n == 0 {
		return nil, errors.Wrap(ErrInvalidHeader, "empty input")
	}
	if !bytes.Equal(raw[:len(model.Magic)], model.Magic[:]) {
		return nil, errors.Wrapf(ErrInvalidMagic, "got %x", raw[:len(model.Magic)])
	}

	c := wire.NewCursor(raw[len(model.Magic):])
	version, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	timestamp, err := c.Uint64()
	if err != nil {
		return nil, err
	}
	p.logger.Debugw("Read header", "version", version, "timestamp", timestamp)
	return &model.Header{Version: version, Timestamp: timestamp}, nil
}

// readRecord reads and dispatches one record. It returns a nil message on a clean end of input.
func (p *Parser) readRecord() (model.Message, error) {
	var hdr [recordHeaderSize]byte
	offset := p.src.BytesRead()
	n, err := p.src.ReadFull(hdr[:])
	if err != nil {
		return nil, errors.Wrap(err, "truncated record header")
	}
	if n == 0 {
		return nil, nil
	}
	size := int(hdr[0]) | int(hdr[1])<<8
	tag := model.MessageType(hdr[2])

	payload := p.pool.Get(size)
	defer p.pool.Put(payload)
	n, err = p.src.ReadFull(payload)
	if err == nil && n < size {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, errors.Wrapf(err, "truncated %s record at offset %d", tag, offset)
	}

	p.log = p.logger.With("offset", offset, "type", tag)
	p.log.Debugw("Read record", "size", size, "state", p.state)

	var msg model.Message
	switch p.state {
	case stateDefinitions:
		msg, err = p.definition(tag, payload)
	case stateData:
		msg, err = p.data(tag, payload)
	default:
		err = errors.Errorf("cannot read records in state %s", p.state)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s record at offset %d", tag, offset)
	}
	return msg, nil
}

func (p *Parser) definition(tag model.MessageType, payload []byte) (model.Message, error) {
	c := wire.NewCursor(payload)
	switch tag {
	case model.TypeFlagBits:
		return p.flagBits(c)
	case model.TypeFormat:
		return p.format(c)
	case model.TypeInfo:
		return p.info(c)
	case model.TypeMultiInfo:
		return p.multiInfo(c)
	case model.TypeParameter:
		return p.parameter(c)
	case model.TypeDefaultParameter:
		return p.defaultParameter(c)
	case model.TypeAddSubscription:
		msg, err := p.addSubscription(c)
		if err != nil {
			return nil, err
		}
		p.state = stateData
		return msg, nil
	default:
		return p.unhandled(tag, c), nil
	}
}

func (p *Parser) data(tag model.MessageType, payload []byte) (model.Message, error) {
	c := wire.NewCursor(payload)
	switch tag {
	case model.TypeData:
		return p.loggedData(c)
	case model.TypeAddSubscription:
		return p.addSubscription(c)
	case model.TypeRemoveSubscription:
		return p.removeSubscription(c), nil
	case model.TypeLogging:
		return p.loggedString(c, false)
	case model.TypeLoggingTagged:
		return p.loggedString(c, true)
	case model.TypeDropout:
		duration, err := c.Uint16()
		if err != nil {
			return nil, err
		}
		return &model.Dropout{Duration: duration}, nil
	case model.TypeInfo:
		return p.info(c)
	case model.TypeMultiInfo:
		return p.multiInfo(c)
	case model.TypeParameter:
		return p.parameter(c)
	case model.TypeDefaultParameter:
		return p.defaultParameter(c)
	default:
		return p.unhandled(tag, c), nil
	}
}

func (p *Parser) unhandled(tag model.MessageType, c *wire.Cursor) model.Message {
	if tag != model.TypeSync {
		p.log.Warnw("Unknown message type", "size", c.Remaining(), "state", p.state)
	}
	return &model.Unhandled{Tag: tag, Raw: c.RemainingBytes()}
}

func (p *Parser) flagBits(c *wire.Cursor) (model.Message, error) {
	if c.Remaining() != model.FlagBitsSize {
		p.log.Warnw("Unexpected flag bits size", "size", c.Remaining(), "expected", model.FlagBitsSize)
	}

	fb := &model.FlagBits{}
	compat, err := c.Advance(len(fb.Compat))
	if err != nil {
		return nil, err
	}
	copy(fb.Compat[:], compat)
	incompat, err := c.Advance(len(fb.Incompat))
	if err != nil {
		return nil, err
	}
	copy(fb.Incompat[:], incompat)
	if fb.UnknownIncompat() {
		return nil, errors.Wrapf(ErrUnknownIncompatBits, "incompat flags %x", fb.Incompat)
	}
	for idx := range fb.AppendedOffsets {
		if fb.AppendedOffsets[idx], err = c.Uint64(); err != nil {
			return nil, err
		}
	}

	if limit := fb.ReadLimit(); limit > 0 {
		p.log.Infow("Log has appended data", "offsets", fb.AppendedOffsets, "limit", limit)
		p.src.SetLimit(int64(limit))
	}
	return fb, nil
}

func (p *Parser) format(c *wire.Cursor) (model.Message, error) {
	text, err := c.String(c.Remaining())
	if err != nil {
		return nil, err
	}
	schema, err := schemadef.Parse(text)
	if err != nil {
		return nil, err
	}
	if _, exists := p.schemas[schema.Name]; exists {
		p.log.Debugw("Format redefined, replacing previous definition", "name", schema.Name)
	}
	p.schemas[schema.Name] = schema
	p.log.Debugw("Registered format", "name", schema.Name, "fields", len(schema.Fields))
	return &model.SchemaDefinition{Schema: schema}, nil
}

// readKey reads the length prefixed "type name" key of info and parameter records.
func (p *Parser) readKey(c *wire.Cursor) (model.Field, error) {
	keyLen, err := c.Uint8()
	if err != nil {
		return model.Field{}, err
	}
	key, err := c.String(int(keyLen))
	if err != nil {
		return model.Field{}, err
	}
	return schemadef.ParseKey(key)
}

func (p *Parser) info(c *wire.Cursor) (model.Message, error) {
	key, err := p.readKey(c)
	if err != nil {
		return nil, err
	}
	value, err := p.decodeValue(key.Type, c, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "info %q", key.Name)
	}
	p.log.Debugw("Info", "key", key.Name, "type", key.Type.String(), "value", value.String())
	return &model.Info{Key: key.Name, Type: key.Type, Value: value}, nil
}

func (p *Parser) multiInfo(c *wire.Cursor) (model.Message, error) {
	continued, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	key, err := p.readKey(c)
	if err != nil {
		return nil, err
	}
	value, err := p.decodeValue(key.Type, c, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "multi info %q", key.Name)
	}
	p.log.Debugw("Multi info", "key", key.Name, "continued", continued != 0)
	return &model.MultiInfo{Continued: continued != 0, Key: key.Name, Type: key.Type, Value: value}, nil
}

// parameterValue reads the value of a parameter. Parameters are scalar int32_t or float.
func (p *Parser) parameterValue(key model.Field, c *wire.Cursor) (model.FieldValue, error) {
	if key.Type.IsArray {
		return nil, errors.Wrapf(ErrUnknownParameterType, "%s %s", key.Type, key.Name)
	}
	switch key.Type.Base.Kind {
	case model.KindInt32:
		v, err := c.Int32()
		return model.Scalar[int32]{Value: v}, err
	case model.KindFloat32:
		v, err := c.Float32()
		return model.Scalar[float32]{Value: v}, err
	default:
		return nil, errors.Wrapf(ErrUnknownParameterType, "%s %s", key.Type, key.Name)
	}
}

func (p *Parser) parameter(c *wire.Cursor) (model.Message, error) {
	key, err := p.readKey(c)
	if err != nil {
		return nil, err
	}
	value, err := p.parameterValue(key, c)
	if err != nil {
		return nil, err
	}
	p.log.Debugw("Parameter", "key", key.Name, "value", value.String())
	return &model.Parameter{Key: key.Name, Type: key.Type, Value: value}, nil
}

func (p *Parser) defaultParameter(c *wire.Cursor) (model.Message, error) {
	defaultTypes, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	key, err := p.readKey(c)
	if err != nil {
		return nil, err
	}
	value, err := p.parameterValue(key, c)
	if err != nil {
		return nil, err
	}
	return &model.DefaultParameter{DefaultTypes: defaultTypes, Key: key.Name, Type: key.Type, Value: value}, nil
}

func (p *Parser) addSubscription(c *wire.Cursor) (model.Message, error) {
	multiID, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	msgID, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	name, err := c.String(c.Remaining())
	if err != nil {
		return nil, err
	}
	if _, ok := p.schemas[name]; !ok {
		return nil, &UndefinedFormatError{Name: name}
	}

	sub := model.Subscription{MsgID: msgID, MultiID: multiID, MessageName: name}
	p.subscriptions[msgID] = sub
	if multiID > 0 {
		p.multiInstance[name] = struct{}{}
	}
	if p.allowed(name) {
		p.allowedIDs[msgID] = struct{}{}
	} else {
		delete(p.allowedIDs, msgID)
	}
	p.log.Debugw("Added subscription", "name", name, "msg_id", msgID, "multi_id", multiID)
	return &model.AddSubscription{Subscription: sub}, nil
}

func (p *Parser) allowed(name string) bool {
	if p.allowNames == nil {
		return true
	}
	_, ok := p.allowNames[name]
	return ok
}

func (p *Parser) removeSubscription(c *wire.Cursor) model.Message {
	raw := c.RemainingBytes()
	if len(raw) >= 2 {
		msgID := uint16(raw[0]) | uint16(raw[1])<<8
		delete(p.subscriptions, msgID)
		delete(p.allowedIDs, msgID)
		p.log.Debugw("Removed subscription", "msg_id", msgID)
	} else {
		p.log.Warnw("Remove subscription record too short", "size", len(raw))
	}
	return &model.Unhandled{Tag: model.TypeRemoveSubscription, Raw: raw}
}

func (p *Parser) loggedString(c *wire.Cursor, tagged bool) (model.Message, error) {
	level, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	ls := &model.LoggedString{Level: model.LogLevel(level)}
	if !ls.Level.Valid() {
		return nil, errors.Wrapf(ErrInvalidLogLevel, "got 0x%02x", level)
	}
	if tagged {
		tag, err := c.Uint16()
		if err != nil {
			return nil, err
		}
		ls.Tag = &tag
	}
	if ls.Timestamp, err = c.Uint64(); err != nil {
		return nil, err
	}
	if ls.Text, err = c.String(c.Remaining()); err != nil {
		return nil, err
	}
	return ls, nil
}

func (p *Parser) loggedData(c *wire.Cursor) (model.Message, error) {
	msgID, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	sub, ok := p.subscriptions[msgID]
	if !ok {
		return nil, &UndefinedSubscriptionError{MsgID: msgID}
	}
	if _, ok := p.allowedIDs[msgID]; !ok {
		// Hand back the whole payload, msg_id included.
		return &model.Ignored{Tag: model.TypeData, Raw: append([]byte{byte(msgID), byte(msgID >> 8)}, c.RemainingBytes()...)}, nil
	}

	schema, ok := p.schemas[sub.MessageName]
	if !ok {
		return nil, &UndefinedFormatError{Name: sub.MessageName}
	}
	rec, err := p.decodeRecord(schema, c, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "data of %q", sub.MessageName)
	}

	if rec.Timestamp == nil {
		rec.Timestamp = firstTimestamp(rec)
	}
	if rec.Timestamp == nil {
		return nil, errors.Wrapf(ErrMissingTimestamp, "format %q", sub.MessageName)
	}
	if _, ok := p.multiInstance[sub.MessageName]; ok {
		multiID := sub.MultiID
		rec.MultiID = &multiID
	}
	if !p.cfg.IncludeTimestamp {
		rec.Fields = lo.Reject(rec.Fields, func(field model.RecordField, _ int) bool {
			return field.Name == model.TimestampField
		})
	}
	if !c.Empty() {
		p.log.Warnw("Leftover bytes after logged data, possible corruption",
			"name", sub.MessageName, "leftover", c.Remaining())
	}
	return &model.LoggedData{Timestamp: *rec.Timestamp, MsgID: msgID, Data: rec}, nil
}
