package config

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

const schemaPackage = "graphcache.config"

// ConfigDescriptor describes the `Config` message accepted in the config file. Every leaf field is named after the
// command line flag it sets; section messages only group related flags.
var ConfigDescriptor = mustBuildSchema().Messages().ByName("Config")

func scalarField(name string, number int32,
	fieldType descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   fieldType.Enum(),
	}
}

func sectionField(name string, number int32, messageName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String("." + schemaPackage + "." + messageName),
	}
}

// mustBuildSchema builds the config file schema. Proto2 syntax is used so that explicitly set zero values
// (e.g. `log_max_backups: 0`) are still applied to their flags.
func mustBuildSchema() protoreflect.FileDescriptor {
	const (
		typeString = descriptorpb.FieldDescriptorProto_TYPE_STRING
		typeInt64  = descriptorpb.FieldDescriptorProto_TYPE_INT64
	)
	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("graphcache/config.proto"),
		Package: proto.String(schemaPackage),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Config"),
				Field: []*descriptorpb.FieldDescriptorProto{
					sectionField("cache", 1, "CacheConfig"),
					sectionField("graph", 2, "GraphConfig"),
					sectionField("port", 3, "PortConfig"),
					sectionField("log", 4, "LogConfig"),
				},
			},
			{
				Name: proto.String("CacheConfig"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("graph_cache_capacity", 1, typeInt64),
					scalarField("graph_cache_shard_count", 2, typeInt64),
				},
			},
			{
				Name: proto.String("GraphConfig"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("graph_dir", 1, typeString),
				},
			},
			{
				Name: proto.String("PortConfig"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("address", 1, typeString),
					scalarField("metrics_address", 2, typeString),
				},
			},
			{
				Name: proto.String("LogConfig"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("log_handler_type", 1, typeString),
					scalarField("log_level", 2, typeString),
					scalarField("log_file", 3, typeString),
					scalarField("log_max_size_mb", 4, typeInt64),
					scalarField("log_max_backups", 5, typeInt64),
				},
			},
		},
	}
	fileDescriptor, err := protodesc.NewFile(file, nil /*resolver*/)
	if err != nil {
		panic(fmt.Sprintf("invalid config schema: %v", err))
	}
	return fileDescriptor
}
