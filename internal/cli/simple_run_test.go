package cli

import "testing"

func TestSimpleRunToConfig(t *testing.T) {
	r := SimpleRun{
		BotToken: "123:ABC",
		APIID:    42,
		APIHash:  "deadbeef",
		BindTo:   "0.0.0.0:3129",
		Debug:    true,
	}

	conf, err := r.toConfig()
	if err != nil {
		t.Fatalf("toConfig: %v", err)
	}

	if conf.Telegram.BotToken != r.BotToken {
		t.Fatalf("botToken = %q, want %q", conf.Telegram.BotToken, r.BotToken)
	}

	if conf.Telegram.APIID != r.APIID {
		t.Fatalf("apiID = %d, want %d", conf.Telegram.APIID, r.APIID)
	}

	if conf.Listen.TCP4.Get("") != r.BindTo {
		t.Fatalf("listen.tcp4 = %q, want %q", conf.Listen.TCP4.Get(""), r.BindTo)
	}

	if !conf.Debug.Get(false) {
		t.Fatal("expected debug to be true")
	}
}

func TestSimpleRunToConfigRejectsMissingToken(t *testing.T) {
	r := SimpleRun{
		APIID:   42,
		APIHash: "deadbeef",
		BindTo:  "0.0.0.0:3129",
	}

	if _, err := r.toConfig(); err == nil {
		t.Fatal("expected an error for missing bot token")
	}
}
