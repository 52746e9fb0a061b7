/*
 * Copyright 2023 Comcast Cable Communications Management, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	MethodFile   = "file"
	MethodVector = "vector"
)

var (
	logger      *zap.Logger
	atomicLevel = zap.NewAtomicLevel()
)

// LogFile configures the rotated log file written when the method is file.
type LogFile struct {
	Path       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// LoggerConfig selects the level and the sink used in addition to stdout.
type LoggerConfig struct {
	LogLevel       string
	LogMethod      string
	LogFile        LogFile
	VectorEndpoint string
}

// Initialize replaces the global zap logger with a JSON logger writing to
// stdout and, depending on LogMethod, a rotated file or a vector endpoint.
func Initialize(svc, hostname string, conf LoggerConfig) error {
	atomicLevel.SetLevel(parseLevel(conf.LogLevel))

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(ProdEncoderConf()), zapcore.Lock(os.Stdout), atomicLevel),
	}

	switch conf.LogMethod {
	case MethodFile:
		ljWriteSyncer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(conf.LogFile.Path, svc+".log"),
			MaxSize:    conf.LogFile.MaxSize, // megabytes
			MaxBackups: conf.LogFile.MaxBackups,
			MaxAge:     conf.LogFile.MaxAge, // days
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(ProdEncoderConf()), ljWriteSyncer, atomicLevel))
	case MethodVector:
		u, err := url.Parse(conf.VectorEndpoint)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid vector endpoint %q", conf.VectorEndpoint)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(ProdEncoderConf()), newVectorSink(u), atomicLevel))
	case "":
	default:
		return fmt.Errorf("unknown log method %q", conf.LogMethod)
	}

	logger = zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.Fields(
			zap.String("app", svc),
			zap.String("hostname", hostname),
		))

	zap.ReplaceGlobals(logger)
	return nil
}

func Flush() {
	if logger != nil {
		logger.Sync()
	}
}

func SetLevel(l string) {
	atomicLevel.SetLevel(parseLevel(l))
}

func GetLevel() string {
	return atomicLevel.Level().String()
}

func parseLevel(l string) zapcore.Level {
	switch l {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func ProdEncoderConf() zapcore.EncoderConfig {
	encConf := zap.NewProductionEncoderConfig()
	encConf.EncodeTime = zapcore.RFC3339TimeEncoder

	return encConf
}

func Verbosity(w http.ResponseWriter, r *http.Request) {
	level := GetLevel()
	zap.L().Debug("current logging level", zap.String("level", level))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "{\"verbosity\": \"%s\"}", level)
}

func SetVerbosity(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("v")
	if level == "" {
		http.Error(w, "'v' parameter is not set", http.StatusBadRequest)
		return
	}

	SetLevel(level)
	zap.L().Info("updating logging level", zap.String("level", GetLevel()))

	w.WriteHeader(http.StatusNoContent)
}
