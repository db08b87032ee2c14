// Package parser decodes ULog files, the self describing telemetry format written by PX4
// autopilots, into a stream of model.Message values.
//
// A ULog file describes its own records. Before any data is logged the file announces the shape
// of every record type ("format" messages) and which record types are logged under which small
// integer id ("subscription" messages). Data records then only carry the id and the packed field
// values.
//
// Using a pseudo EBNF notation, a ULog file is:
//
//	ULOG = header definitions data
//
//	header =
//		magic : 0x55 0x4C 0x6F 0x67 0x01 0x12 0x35
//		version : uint8
//		timestamp : uint64 <microseconds>
//
//	definitions = ( flag_bits | format | info | multi_info | parameter | default_parameter )*
//	data = add_subscription ( add_subscription | remove_subscription | logged_data |
//		logged_string | tagged_logged_string | dropout | sync | info | multi_info |
//		parameter | default_parameter )*
//
// Every record after the header is framed the same way:
//
//	record =
//		size : uint16 <length of content>
//		type : uint8 <ASCII tag, e.g. 'F' for format>
//		content : <size bytes>
//
// All integers are little-endian. A format's content is text:
//
//	vehicle_attitude:uint64_t timestamp;float[4] q;float[3] delta_q_reset;uint8_t[4] _padding0;
//
// A field's type is either a primitive (uint8_t through int64_t, float, double, bool, char) or
// the name of another format, in which case the field holds an embedded record of that format.
// Fields named `_padding*` only exist to keep the C struct layout; the last padding field of a
// record may be cut short by the logger.
//
// A logged_data record's content is a uint16 msg_id followed by the packed field values of the
// format subscribed under that id. The record's timestamp is its uint64 field named "timestamp".
//
// The parser is a pull iterator. Each call to Next reads exactly one record. The parser switches
// from definitions to data on the first add_subscription record. Unknown record types are yielded
// as Unhandled with their payload intact, and data records excluded by
// Config.SubscriptionAllowList are yielded as Ignored. Re-encoding every message of a log parsed
// with RoundTripConfig reproduces the input exactly.
//
// A flag_bits record with incompat bit 0 set tells the parser that non ULog data was appended at
// one of its offsets (e.g. a crash dump); parsing stops at the first of them.
package parser
