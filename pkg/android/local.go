package android

import (
	"strconv"

	"github.com/animalet/envplaceholder/pkg/envfile"
	"github.com/rs/zerolog/log"
)

// LocalPropertiesFile is written by the Flutter tool next to the Gradle files.
const LocalPropertiesFile = "local.properties"

// Keys the Flutter tool writes into local.properties.
const (
	FlutterVersionCode = "flutter.versionCode"
	FlutterVersionName = "flutter.versionName"
	FlutterMinSdk      = "flutter.minSdkVersion"
	FlutterTargetSdk   = "flutter.targetSdkVersion"
	FlutterCompileSdk  = "flutter.compileSdkVersion"
	FlutterNdkVersion  = "flutter.ndkVersion"
)

// LoadLocalProperties reads <projectRoot>/local.properties. A missing file
// yields empty properties.
func LoadLocalProperties(projectRoot string) *envfile.Properties {
	return envfile.LoadFrom(projectRoot, LocalPropertiesFile)
}

// WithLocalProperties returns c with its unset fields filled from the Flutter
// keys of props. Values that are not numbers where a number is expected are
// ignored.
func (c BuildConfig) WithLocalProperties(props *envfile.Properties) BuildConfig {
	fillInt(&c.VersionCode, props, FlutterVersionCode)
	fillInt(&c.MinSdk, props, FlutterMinSdk)
	fillInt(&c.TargetSdk, props, FlutterTargetSdk)
	fillInt(&c.CompileSdk, props, FlutterCompileSdk)
	fillString(&c.VersionName, props, FlutterVersionName)
	fillString(&c.NdkVersion, props, FlutterNdkVersion)
	return c
}

func fillInt(field *int, props *envfile.Properties, key string) {
	if *field != 0 {
		return
	}
	raw, ok := props.Get(key)
	if !ok || raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("Ignoring non-numeric local property")
		return
	}
	*field = v
}

func fillString(field *string, props *envfile.Properties, key string) {
	if *field != "" {
		return
	}
	if v, ok := props.Get(key); ok {
		*field = v
	}
}
