package cli

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/ulog/encode"
	"go.viam.com/ulog/logging"
	"go.viam.com/ulog/model"
	"go.viam.com/ulog/parser"
)

const logFileMaxSizeMB = 16

// session holds the logger of one command invocation.
type session struct {
	logger logging.Logger
	file   *logging.FileAppender
}

func newSession(c *cli.Context) *session {
	logger := logging.NewBlankLogger("ulogcat")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if !c.Bool(generalFlagDebug) {
		logger.SetLevel(logging.WARN)
	}
	s := &session{logger: logger}
	if path := c.String(generalFlagLogFile); path != "" {
		s.file = logging.NewFileAppender(path, logFileMaxSizeMB)
		logger.AddAppender(s.file)
	}
	return s
}

func (s *session) close() error {
	err := s.logger.Sync()
	if s.file != nil {
		err = multierr.Combine(err, s.file.Close())
	}
	return err
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// withInput opens the log named by the single argument of `c` and hands it to `fn`.
func withInput(c *cli.Context, fn func(in io.Reader, conf parser.Config, logger logging.Logger) error) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one log file argument")
	}
	conf, err := loadConfig(c.String(generalFlagConfig))
	if err != nil {
		return err
	}

	s := newSession(c)
	defer utils.UncheckedErrorFunc(s.close)

	in, err := openInput(c.Args().First())
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(in.Close)
	return fn(in, conf, s.logger)
}

// CatAction prints every message of a log.
func CatAction(c *cli.Context) error {
	return withInput(c, func(in io.Reader, conf parser.Config, logger logging.Logger) error {
		conf.IncludeHeader = conf.IncludeHeader || c.Bool(flagHeader)
		if c.Bool(flagRaw) {
			conf.IncludeTimestamp = true
			conf.IncludePadding = true
		}
		p, err := parser.New(in, conf, logger)
		if err != nil {
			return err
		}
		return p.ForEach(func(msg model.Message) error {
			printf(c.App.Writer, "%s", msg)
			return nil
		})
	})
}

// SubscriptionsAction prints a table of every subscription added in a log.
func SubscriptionsAction(c *cli.Context) error {
	return withInput(c, func(in io.Reader, conf parser.Config, logger logging.Logger) error {
		p, err := parser.New(in, conf, logger)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(c.App.Writer)
		t.AppendHeader(table.Row{"msg_id", "multi_id", "name", "fields"})
		err = p.ForEach(func(msg model.Message) error {
			sub, ok := msg.(*model.AddSubscription)
			if !ok {
				return nil
			}
			fields := 0
			if schema, ok := p.Schema(sub.MessageName); ok {
				fields = len(schema.Fields)
			}
			t.AppendRow(table.Row{sub.MsgID, sub.MultiID, sub.MessageName, fields})
			return nil
		})
		if err != nil {
			return err
		}
		t.Render()
		return nil
	})
}

// MultiIDAction prints the names of messages logged under more than one instance.
func MultiIDAction(c *cli.Context) error {
	return withInput(c, func(in io.Reader, conf parser.Config, logger logging.Logger) error {
		p, err := parser.New(in, conf, logger)
		if err != nil {
			return err
		}
		if err := p.ForEach(func(model.Message) error { return nil }); err != nil {
			return err
		}
		for _, name := range p.MultiInstance() {
			printf(c.App.Writer, "%s", name)
		}
		return nil
	})
}

// InfoAction prints a table of the info messages and parameters of a log.
func InfoAction(c *cli.Context) error {
	return withInput(c, func(in io.Reader, conf parser.Config, logger logging.Logger) error {
		p, err := parser.New(in, conf, logger)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(c.App.Writer)
		t.AppendHeader(table.Row{"kind", "type", "key", "value"})
		err = p.ForEach(func(msg model.Message) error {
			switch typed := msg.(type) {
			case *model.Info:
				t.AppendRow(table.Row{"info", typed.Type, typed.Key, typed.Value})
			case *model.MultiInfo:
				t.AppendRow(table.Row{"multi info", typed.Type, typed.Key, typed.Value})
			case *model.Parameter:
				t.AppendRow(table.Row{"parameter", typed.Type, typed.Key, typed.Value})
			case *model.DefaultParameter:
				t.AppendRow(table.Row{"default parameter", typed.Type, typed.Key, typed.Value})
			}
			return nil
		})
		if err != nil {
			return err
		}
		t.Render()
		return nil
	})
}

// RoundTripAction decodes a log with every inclusion turned on, re-encodes it and checks that
// the output matches the input.
func RoundTripAction(c *cli.Context) error {
	return withInput(c, func(in io.Reader, conf parser.Config, logger logging.Logger) error {
		conf.IncludeHeader = true
		conf.IncludeTimestamp = true
		conf.IncludePadding = true

		var original, encoded bytes.Buffer
		p, err := parser.New(io.TeeReader(in, &original), conf, logger)
		if err != nil {
			return err
		}
		enc := encode.NewEncoder(&encoded)
		if err := p.ForEach(enc.Encode); err != nil {
			return err
		}

		// Data appended after the log is not decoded and so not re-encoded.
		consumed := original.Bytes()[:p.BytesRead()]
		if offset := firstDifference(consumed, encoded.Bytes()); offset >= 0 {
			return errors.Errorf("round trip output differs from input at offset %d", offset)
		}
		printf(c.App.Writer, "round trip ok: %d bytes", encoded.Len())

		if path := c.String(flagOut); path != "" {
			return writeOutput(path, encoded.Bytes())
		}
		return nil
	})
}

// FilterAction writes a copy of a log without the data of messages outside the allow list.
func FilterAction(c *cli.Context) error {
	return withInput(c, func(in io.Reader, conf parser.Config, logger logging.Logger) error {
		conf.IncludeHeader = true
		conf.IncludeTimestamp = true
		conf.IncludePadding = true
		conf.SubscriptionAllowList = c.StringSlice(flagAllow)

		p, err := parser.New(in, conf, logger)
		if err != nil {
			return err
		}
		var out bytes.Buffer
		enc := encode.NewEncoder(&out)
		var kept, dropped int
		err = p.ForEach(func(msg model.Message) error {
			switch msg.(type) {
			case *model.Ignored:
				dropped++
				return nil
			case *model.LoggedData:
				kept++
			}
			return enc.Encode(msg)
		})
		if err != nil {
			return err
		}
		if err := writeOutput(c.String(flagOut), out.Bytes()); err != nil {
			return err
		}
		printf(c.App.Writer, "kept %d of %d data records", kept, kept+dropped)
		return nil
	})
}

func writeOutput(path string, data []byte) (err error) {
	out, err := createOutput(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, out.Close())
	}()
	_, err = out.Write(data)
	return err
}

// firstDifference returns the first offset at which `a` and `b` differ, or -1 if they are
// equal.
func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
