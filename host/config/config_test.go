package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load([]byte(`{}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Link.Device != "/dev/ttyACM0" || cfg.Link.Baud != 250000 {
		t.Errorf("link defaults %+v", cfg.Link)
	}
	if cfg.Controller.DivWrite != 3 || cfg.Controller.DivRead != 3 {
		t.Errorf("divisor defaults %d/%d, expected 3/3",
			cfg.Controller.DivWrite, cfg.Controller.DivRead)
	}
}

func TestLoadOverrides(t *testing.T) {
	data := []byte(`{
		"link": {"device": "/dev/ttyUSB1", "baud": 115200},
		"controller": {"clk_phase": true, "half_duplex": true, "div_write": 7, "div_read": 9}
	}`)
	cfg, err := Load(data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Link.Device != "/dev/ttyUSB1" || cfg.Link.Baud != 115200 {
		t.Errorf("link %+v", cfg.Link)
	}

	cc := cfg.Controller.CoreConfig()
	if !cc.ClkPhase || !cc.HalfDuplex || cc.DivWrite != 7 || cc.DivRead != 9 {
		t.Errorf("core config %+v", cc)
	}
	if cc.Offline {
		t.Error("core config must come up online")
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	if _, err := Load([]byte(`{"link":`)); err == nil {
		t.Error("malformed JSON accepted")
	}
}
