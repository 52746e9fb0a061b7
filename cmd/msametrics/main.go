/*
 * Copyright 2025 Comcast Cable Communications Management, LLC
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

package main

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"sync"
	"syscall"
	"time"

	"github.com/comcast/msametrics/buildinfo"
	"github.com/comcast/msametrics/common"
	"github.com/comcast/msametrics/config"
	"github.com/comcast/msametrics/exporter"
	"github.com/comcast/msametrics/http/handlers"
	"github.com/comcast/msametrics/logger"
	"github.com/comcast/msametrics/middleware/logging"
	"github.com/comcast/msametrics/middleware/muxprom"
	"github.com/comcast/msametrics/msa"
	msa_vault "github.com/comcast/msametrics/vault"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"
)

const (
	app       = "msametrics"
	namespace = "msa_exporter"

	shutdownTimeout = 10 * time.Second
)

var (
	a                  = kingpin.New(app, "HP MSA storage array exporter")
	host               = a.Arg("host", "MSA management address, a host or a base URL").Required().Envar("MSA_HOST").String()
	username           = a.Arg("username", "MSA static username").Envar("MSA_USERNAME").String()
	password           = a.Arg("password", "MSA static password").Envar("MSA_PASSWORD").String()
	exporterPort       = a.Flag("port", "exporter port").Default("8000").Envar("EXPORTER_PORT").String()
	interval           = a.Flag("interval", "time between two collection cycles, also bounds one cycle").Default("60s").Envar("MSA_INTERVAL").Duration()
	msaTimeout         = a.Flag("timeout", "MSA api call timeout").Default("60s").Envar("MSA_TIMEOUT").Duration()
	msaScheme          = a.Flag("scheme", "MSA scheme to use").Default("https").Envar("MSA_SCHEME").String()
	insecureSkipVerify = a.Flag("insecure-skip-verify", "Skip TLS verification").Default("true").Envar("INSECURE_SKIP_VERIFY").Bool()
	authDigest         = a.Flag("auth.digest", "login digest, md5 for older firmware").PlaceHolder("[sha256|md5]").Default(config.DigestSHA256).Envar("MSA_AUTH_DIGEST").Enum(config.DigestSHA256, config.DigestMD5)
	proxy              = a.Flag("proxy", "HTTP proxy used for every MSA api call").Default("").Envar("MSA_PROXY").String()
	concurrency        = a.Flag("collector.concurrency", "number of resources fetched at once").Default("1").Envar("COLLECTOR_CONCURRENCY").Int()
	resourcesExclude   = a.Flag("collector.resources-exclude", "regex of resource(s) to exclude from every cycle").Default("").Envar("COLLECTOR_RESOURCES_EXCLUDE").String()
	logLevel           = a.Flag("log.level", "log level verbosity").PlaceHolder("[debug|info|warn|error]").Default("info").Envar("LOG_LEVEL").String()
	logMethod          = a.Flag("log.method", "alternative method for logging in addition to stdout").PlaceHolder("[file|vector]").Default("").Envar("LOG_METHOD").String()
	logFilePath        = a.Flag("log.file-path", "directory path where log files are written if log-method is file").Default("/var/log/msametrics").Envar("LOG_FILE_PATH").String()
	logFileMaxSize     = a.Flag("log.file-max-size", "max file size in megabytes if log-method is file").Default("256").Envar("LOG_FILE_MAX_SIZE").Int()
	logFileMaxBackups  = a.Flag("log.file-max-backups", "max file backups before they are rotated if log-method is file").Default("1").Envar("LOG_FILE_MAX_BACKUPS").Int()
	logFileMaxAge      = a.Flag("log.file-max-age", "max file age in days before they are rotated if log-method is file").Default("1").Envar("LOG_FILE_MAX_AGE").Int()
	vectorEndpoint     = a.Flag("vector.endpoint", "vector endpoint to send structured json logs to").Default("http://0.0.0.0:4444").Envar("VECTOR_ENDPOINT").String()
	vaultAddr          = a.Flag("vault.addr", "Vault instance address to get MSA credentials from").Default("https://vault.com").Envar("VAULT_ADDRESS").String()
	vaultRoleId        = a.Flag("vault.role-id", "Vault Role ID for AppRole").Default("").Envar("VAULT_ROLE_ID").String()
	vaultSecretId      = a.Flag("vault.secret-id", "Vault Secret ID for AppRole").Default("").Envar("VAULT_SECRET_ID").String()
	credProfiles       = a.Flag("credentials.profiles", `file with the profile(s) locating MSA credentials in vault, i.e.
  profiles:
    - name: default
      mountPath: "kv2"
      path: "path/to/secret"
      userField: "user"
      passwordField: "password"`).Default("").Envar("CREDENTIALS_PROFILES").String()
	credProfile = a.Flag("credentials.profile", "name of the credential profile to use").Default("default").Envar("CREDENTIALS_PROFILE").String()

	log *zap.Logger
)

func main() {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = ""
	}

	a.HelpFlag.Short('h')
	a.Version(buildinfo.Info.String())

	_, err = a.Parse(os.Args[1:])
	if err != nil {
		panic(fmt.Errorf("error parsing argument flags - %s", err.Error()))
	}

	var excludes *regexp.Regexp
	if *resourcesExclude != "" {
		excludes, err = regexp.Compile(*resourcesExclude)
		if err != nil {
			panic(fmt.Errorf("error parsing --collector.resources-exclude - %s", err.Error()))
		}
	}

	// validate logFilePath exists and is a directory
	if *logMethod == logger.MethodFile {
		fd, err := os.Stat(*logFilePath)
		if os.IsNotExist(err) {
			panic(err)
		}
		if !fd.IsDir() {
			panic(fmt.Errorf("%s is not a directory", *logFilePath))
		}
	}

	config.NewConfig(&config.Config{
		Scheme:             *msaScheme,
		Timeout:            *msaTimeout,
		InsecureSkipVerify: *insecureSkipVerify,
		User:               *username,
		Pass:               *password,
		AuthDigest:         *authDigest,
	})

	logConfig := logger.LoggerConfig{
		LogLevel:  *logLevel,
		LogMethod: *logMethod,
		LogFile: logger.LogFile{
			Path:       *logFilePath,
			MaxSize:    *logFileMaxSize,
			MaxBackups: *logFileMaxBackups,
			MaxAge:     *logFileMaxAge,
		},
		VectorEndpoint: *vectorEndpoint,
	}
	if err := logger.Initialize(app, hostname, logConfig); err != nil {
		panic(fmt.Errorf("error initializing logger - log_method=%s vector_endpoint=%s log_file_path=%s - err=%s",
			*logMethod, *vectorEndpoint, *logFilePath, err.Error()))
	}

	log = zap.L()
	defer logger.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	var wg sync.WaitGroup

	creds, err := credentialProvider(ctx, &wg)
	if err != nil {
		log.Error("unable to configure MSA credentials", zap.Error(err))
		return
	}

	if *proxy != "" {
		ctx = msa.WithProxyURL(ctx, *proxy)
	}

	exp, err := exporter.NewExporter(ctx, exporter.Options{
		Host:        *host,
		Credentials: creds,
		Interval:    *interval,
		Concurrency: *concurrency,
		Excludes:    excludes,
	})
	if err != nil {
		log.Error("failed to create MSA exporter", zap.Error(err), zap.String("host", *host))
		return
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		exp,
		buildinfo.NewCollector(namespace),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /status", handlers.StatusHandler(exp))
	mux.HandleFunc("GET /ready", handlers.ReadyHandler(exp))

	mux.HandleFunc("GET /info", buildinfo.Handler)

	tmplIndex := template.Must(template.New("index").Parse(indexTmpl))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		err := tmplIndex.Execute(w, indexAppData{Build: buildinfo.Info, Status: exp.Status()})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	mux.HandleFunc("GET /verbosity", logger.Verbosity)
	mux.HandleFunc("PUT /verbosity", logger.SetVerbosity)

	instrumentation := muxprom.NewInstrumentation(registry)
	wrappedmux := logging.LoggingHandler(instrumentation.Middleware(mux))

	srv := &http.Server{
		Addr:              ":" + *exporterPort,
		Handler:           wrappedmux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp4", ":"+*exporterPort)
	if err != nil {
		log.Error("starting "+app+" service failed", zap.Error(err))
		stop()
		wg.Wait()
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("http server received an error", zap.Error(err))
			stop()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		exp.Run(ctx)
	}()

	log.Info("started "+app+" service",
		zap.String("host", exp.Host()),
		zap.Duration("interval", *interval),
		zap.Int("resources", len(exp.Resources())),
		zap.String("port", *exporterPort))

	<-ctx.Done()
	log.Info("signal caught, stopping app")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}

	wg.Wait()
}

// credentialProvider returns vault backed credentials when an AppRole is
// configured, the static username and password otherwise. The vault token
// is renewed until ctx is done.
func credentialProvider(ctx context.Context, wg *sync.WaitGroup) (msa.CredentialProvider, error) {
	if *vaultRoleId == "" || *vaultSecretId == "" {
		cfg := config.GetConfig()
		return msa.StaticCredentials{User: cfg.User, Pass: cfg.Pass}, nil
	}

	props := &msa_vault.SecretProperties{MountPath: "kv2"}
	if *credProfiles != "" {
		profiles, err := common.LoadProfiles(*credProfiles)
		if err != nil {
			return nil, err
		}
		props, err = profiles.SecretProperties(*credProfile)
		if err != nil {
			return nil, err
		}
	}

	vault, err := msa_vault.NewVaultAppRoleClient(ctx, msa_vault.Parameters{
		Address:         *vaultAddr,
		ApproleRoleID:   *vaultRoleId,
		ApproleSecretID: *vaultSecretId,
	})
	if err != nil {
		return nil, fmt.Errorf("failed initializing vault client: %w", err)
	}

	// log in before the first cycle reads the secret, Run retries on failure
	if err := vault.Login(ctx); err != nil {
		log.Error("initial vault login failed", zap.Error(err), zap.String("vault_address", *vaultAddr))
	}

	// start go routine to continuously renew vault token
	wg.Add(1)
	go vault.Run(ctx, wg)

	target := *host
	if base, err := msa.BaseURL(*host); err == nil {
		target = base.Hostname()
	}

	log.Info("reading MSA credentials from vault",
		zap.String("vault_address", *vaultAddr),
		zap.String("mount_path", props.MountPath),
		zap.String("secret_path", props.SecretPath(target)))

	return common.NewVaultCredentials(vault, props, target), nil
}
