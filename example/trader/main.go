//go:build ydlib

// Command trader drives the generated yd bindings: it logs in, waits for
// the session to finish initializing, then prints market data until
// interrupted. Build with -tags ydlib after running ydgen against the
// vendor header and placing libyd under lib/.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/WhisperCapital/go-yd/yd"
)

func main() {
	config := flag.String("config", "config.txt", "YD client config file")
	user := flag.String("user", "", "login user")
	password := flag.String("password", "", "login password")
	appID := flag.String("app", "", "app id")
	authCode := flag.String("auth", "", "auth code")
	flag.Parse()

	log := zap.Must(zap.NewDevelopment()).Sugar()
	defer log.Sync()

	log.Infow("yd client", "version", yd.GetYDVersion())
	api := yd.MakeYDApi(*config)
	if api == nil {
		log.Fatalw("cannot create api", "config", *config)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stream := yd.NewYDListenerStream()
	defer stream.Close()
	if !api.Start(stream) {
		log.Fatal("start failed")
	}

	for ev := range stream.All(ctx) {
		switch p := ev.(type) {
		case *yd.YDListenerNotifyReadyForLoginPacket:
			if p.HasLoginFailed {
				log.Fatal("login failed, giving up")
			}
			if !api.Login(*user, *password, *appID, *authCode) {
				log.Fatal("login request rejected")
			}
		case *yd.YDListenerNotifyLoginPacket:
			log.Infow("logged in", "errorNo", p.ErrorNo, "maxOrderRef", p.MaxOrderRef)
		case *yd.YDListenerNotifyFinishInitPacket:
			log.Info("session ready")
		case *yd.YDListenerNotifyMarketDataPacket:
			log.Infow("market data",
				"instrument", int(p.PMarketData.InstrumentRef),
				"last", float64(p.PMarketData.LastPrice),
				"volume", int64(p.PMarketData.Volume))
		default:
			log.Debugw("event", "kind", ev.Kind())
		}
	}
	api.Disconnect()
	log.Infow("stopped", "dropped", stream.Dropped())
}
