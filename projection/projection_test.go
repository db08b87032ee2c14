package projection

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/ulog/internal/ulogtest"
	"go.viam.com/ulog/logging"
	"go.viam.com/ulog/model"
	"go.viam.com/ulog/parser"
)

type localPosition struct {
	Timestamp uint64
	X         float32
	Y         float32
	Z         *float32
	NotThere  *uint64
	AltMsl    float64
	Heading   float32 `ulog:"yaw,optional"`
	Valid     bool    `ulog:"xy_valid"`
	Debug     string  `ulog:"-"`
}

type vec struct {
	X float32
	Y float32
}

type pose struct {
	Timestamp uint64
	Name      string
	Pos       vec
	Hist      []vec
	Last      *vec `ulog:"hist_last"`
	Gains     [3]int16
	Outputs   []float32
}

// decode parses a log and returns its data records in order.
func decode(t *testing.T, b *ulogtest.Builder) []*model.Record {
	t.Helper()
	msgs, err := parser.ParseBytes(b.Bytes(), parser.Config{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	var ret []*model.Record
	for _, msg := range msgs {
		if ld, ok := msg.(*model.LoggedData); ok {
			ret = append(ret, ld.Data)
		}
	}
	return ret
}

func positionLog() *ulogtest.Builder {
	return ulogtest.New(1, 0).
		Format("vehicle_local_position:uint64_t timestamp;bool xy_valid;uint8_t[3] _padding0;" +
			"float x;float y;float z;double alt_msl;").
		Subscribe(0, 1, "vehicle_local_position").
		Data(1, ulogtest.U64(20321827), ulogtest.Bool(true), ulogtest.Zeros(3),
			ulogtest.F32(1.5), ulogtest.F32(-2), ulogtest.F32(-1.25), ulogtest.F64(488.5))
}

func TestProjectFlat(t *testing.T) {
	recs := decode(t, positionLog())
	test.That(t, recs, test.ShouldHaveLength, 1)
	rec := recs[0]

	idx, err := BuildIndexFor(rec.Schema, localPosition{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, idx.Schema(), test.ShouldEqual, rec.Schema)
	test.That(t, idx.Names(), test.ShouldResemble, []string{"timestamp", "xy_valid", "x", "y", "z", "alt_msl"})

	var got localPosition
	got.Debug = "kept"
	test.That(t, Project(idx, rec, &got), test.ShouldBeNil)

	z := float32(-1.25)
	test.That(t, got, test.ShouldResemble, localPosition{
		// The timestamp field is dropped from the record by default and comes from the record
		// timestamp instead.
		Timestamp: 20321827,
		X:         1.5,
		Y:         -2,
		Z:         &z,
		AltMsl:    488.5,
		Valid:     true,
		Debug:     "kept",
	})

	again, err := ProjectAs[localPosition](idx, rec)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again.X, test.ShouldEqual, float32(1.5))
}

func TestProjectNested(t *testing.T) {
	recs := decode(t, ulogtest.New(1, 0).
		Format("vec:float x;float y;").
		Format("pose:uint64_t timestamp;char[4] name;vec pos;vec[2] hist;vec hist_last;"+
			"int16_t[3] gains;float[2] outputs;").
		Subscribe(0, 1, "pose").
		Data(1, ulogtest.U64(5), []byte("nose"),
			ulogtest.F32(1), ulogtest.F32(2),
			ulogtest.F32(3), ulogtest.F32(4), ulogtest.F32(5), ulogtest.F32(6),
			ulogtest.F32(7), ulogtest.F32(8),
			ulogtest.I16(-1), ulogtest.I16(0), ulogtest.I16(1),
			ulogtest.F32(0.5), ulogtest.F32(0.25)))

	idx, err := BuildIndexFor(recs[0].Schema, &pose{})
	test.That(t, err, test.ShouldBeNil)
	got, err := ProjectAs[pose](idx, recs[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, pose{
		Timestamp: 5,
		Name:      "nose",
		Pos:       vec{1, 2},
		Hist:      []vec{{3, 4}, {5, 6}},
		Last:      &vec{7, 8},
		Gains:     [3]int16{-1, 0, 1},
		Outputs:   []float32{0.5, 0.25},
	})

	// Nested indexes are built once per struct type and format.
	test.That(t, idx.nested, test.ShouldHaveLength, 1)
}

func TestMissingFields(t *testing.T) {
	rec := decode(t, positionLog())[0]

	type wantsMore struct {
		X     float32
		Vx    float32
		Vy    float32 `ulog:"vy"`
		Maybe *float32
	}
	_, err := BuildIndexFor(rec.Schema, wantsMore{})
	var missingErr *MissingFieldsError
	test.That(t, errors.As(err, &missingErr), test.ShouldBeTrue)
	test.That(t, missingErr.Schema, test.ShouldEqual, "vehicle_local_position")
	test.That(t, missingErr.Missing, test.ShouldResemble, []string{"vx", "vy"})
	test.That(t, err.Error(), test.ShouldContainSubstring, "vx, vy")

	_, err = BuildIndex(rec.Schema, "x", "nope", "z", "also_nope")
	test.That(t, errors.As(err, &missingErr), test.ShouldBeTrue)
	test.That(t, missingErr.Missing, test.ShouldResemble, []string{"nope", "also_nope"})

	// Padding fields are never indexed.
	_, err = BuildIndex(rec.Schema, "_padding0")
	test.That(t, errors.As(err, &missingErr), test.ShouldBeTrue)
}

func TestTypeMismatch(t *testing.T) {
	rec := decode(t, positionLog())[0]

	for _, target := range []interface{}{
		struct{ X float64 }{},
		struct{ X []float32 }{},
		struct {
			Timestamp int64
		}{},
		struct{ Z vec }{},
	} {
		_, err := BuildIndexFor(rec.Schema, target)
		var mismatch *TypeMismatchError
		test.That(t, errors.As(err, &mismatch), test.ShouldBeTrue)
		test.That(t, mismatch.Schema, test.ShouldEqual, "vehicle_local_position")
		test.That(t, mismatch.GoType, test.ShouldEqual, reflect.TypeOf(target).Field(0).Type)
	}

	type arrays struct {
		Outputs [3]float32
	}
	schema := &model.Schema{Name: "out", Fields: []model.Field{
		{Name: "outputs", Type: model.ArrayOf(model.PrimitiveType(model.KindFloat32), 2)},
	}}
	_, err := BuildIndexFor(schema, arrays{})
	var mismatch *TypeMismatchError
	test.That(t, errors.As(err, &mismatch), test.ShouldBeTrue)
	test.That(t, mismatch.Error(), test.ShouldContainSubstring, "float[2]")
}

func TestIndexLookup(t *testing.T) {
	rec := decode(t, positionLog())[0]

	idx, err := BuildIndex(rec.Schema, "z", "x")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, idx.Names(), test.ShouldResemble, []string{"x", "z"})
	pos, ok := idx.Position("z")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pos, test.ShouldEqual, 5)

	v, ok := idx.Value(rec, "z")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldResemble, model.Scalar[float32]{Value: -1.25})
	_, ok = idx.Value(rec, "y")
	test.That(t, ok, test.ShouldBeFalse)

	all, err := BuildIndex(rec.Schema)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all.Names(), test.ShouldHaveLength, 6)

	// Indexes without a target type cannot project.
	var got localPosition
	test.That(t, Project(idx, rec, &got), test.ShouldNotBeNil)
}

func TestProjectErrors(t *testing.T) {
	recs := decode(t, ulogtest.New(1, 0).
		Format("vehicle_local_position:uint64_t timestamp;bool xy_valid;float x;float y;float z;double alt_msl;").
		Format("other:uint64_t timestamp;float x;").
		Subscribe(0, 1, "vehicle_local_position").
		Subscribe(0, 2, "other").
		Data(1, ulogtest.U64(1), ulogtest.Bool(false), ulogtest.Zeros(20)).
		Data(2, ulogtest.U64(1), ulogtest.F32(1)))

	idx, err := BuildIndexFor(recs[0].Schema, localPosition{})
	test.That(t, err, test.ShouldBeNil)

	var got localPosition
	test.That(t, Project(idx, recs[0], got), test.ShouldNotBeNil)
	test.That(t, Project(idx, recs[0], (*localPosition)(nil)), test.ShouldNotBeNil)
	test.That(t, Project(idx, recs[0], &vec{}), test.ShouldNotBeNil)
	test.That(t, Project(idx, recs[1], &got), test.ShouldNotBeNil)

	_, err = BuildIndexFor(recs[0].Schema, 5)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = BuildIndexFor(recs[0].Schema, nil)
	test.That(t, err, test.ShouldNotBeNil)
}
