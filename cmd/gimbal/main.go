package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/config"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/control"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/gimbal"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/canbus"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/imu"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/indicator"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/motor"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/input"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	debugLevel := flag.Int("debug", -1, "override debug level 0-4; -1 = use config value")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Apply CLI overrides (-1 means "use config value")
	if err := applyDebugOverride(cfg, *debugLevel); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Initialize CAN bus
	debug.Value("Mock CAN", cfg.CAN.Mock)
	debug.Step(1, "Initializing CAN bus")
	bus, err := canbus.NewBus(cfg.CAN.Mock, cfg.CAN.Interface)
	if err != nil {
		log.Fatalf("init CAN bus failed: %v", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Printf("closing CAN bus failed: %v", err)
		}
	}()

	// Initialize motors. Motors sharing a command frame ID must share
	// one command group so sibling slots survive retransmits.
	debug.Step(2, "Initializing gimbal motors")
	groups := map[uint32]*motor.CommandGroup{}
	groupFor := func(id uint32) *motor.CommandGroup {
		if g, ok := groups[id]; ok {
			return g
		}
		g := motor.NewCommandGroup(bus, id)
		groups[id] = g
		return g
	}
	yawMotor := motor.NewDJI(bus, groupFor(cfg.YawMotor.CommandID), motor.DJIConfig{
		Name:           cfg.YawMotor.Name,
		FeedbackID:     cfg.YawMotor.FeedbackID,
		CommandSlot:    cfg.YawMotor.CommandSlot,
		OfflineTimeout: cfg.YawOfflineTimeout(),
	})
	debug.PrintStruct("Yaw motor config", cfg.YawMotor)
	pitchMotor := motor.NewDJI(bus, groupFor(cfg.PitchMotor.CommandID), motor.DJIConfig{
		Name:           cfg.PitchMotor.Name,
		FeedbackID:     cfg.PitchMotor.FeedbackID,
		CommandSlot:    cfg.PitchMotor.CommandSlot,
		OfflineTimeout: cfg.PitchOfflineTimeout(),
	})
	debug.PrintStruct("Pitch motor config", cfg.PitchMotor)

	// Initialize IMU
	debug.Step(3, "Initializing IMU")
	debug.Value("IMU type", cfg.IMU.Type)
	pose, err := imu.New(cfg.IMU.Type, cfg.IMU.I2CBus, cfg.IMU.Address)
	if err != nil {
		log.Fatalf("init IMU failed: %v", err)
	}

	// Initialize status lamps
	debug.Step(4, "Initializing status indicators")
	panel, err := indicator.NewPanel(cfg.Indicators.Mock, cfg.Indicators.YawFaultPin, cfg.Indicators.PitchFaultPin)
	if err != nil {
		log.Fatalf("init indicators failed: %v", err)
	}
	defer func() {
		if err := panel.Close(); err != nil {
			log.Printf("closing indicators failed: %v", err)
		}
	}()

	// Build the controller
	debug.Step(5, "Creating gimbal controller")
	g := gimbal.New(gimbal.Deps{
		YawMotor:   yawMotor,
		PitchMotor: pitchMotor,
		YawSpeed:   control.NewPIDSpeed(cfg.Yaw.Kp, cfg.Yaw.Ki, cfg.Yaw.Kd, cfg.Yaw.MaxSpeed),
		PitchSpeed: control.NewPIDSpeed(cfg.Pitch.Kp, cfg.Pitch.Ki, cfg.Pitch.Kd, cfg.Pitch.MaxSpeed),
		IMU:        pose,
		Panel:      panel,
	}, gimbalConfig(cfg))
	runner := gimbal.NewRunner(g, cfg.LoopPeriod(), cfg.InputTimeout())

	// Vision bridge (optional)
	if cfg.Vision.Broker != "" {
		debug.Step(6, "Connecting vision bridge")
		bridge, err := input.StartVision(cfg.Vision.Broker, cfg.Vision.ClientID, cfg.Vision.Topic, g)
		if err != nil {
			log.Fatalf("start vision bridge failed: %v", err)
		}
		defer bridge.Close()
	}

	errCh := make(chan error, 3)
	go func() { errCh <- bus.Run(ctx) }()
	go func() { errCh <- runner.Run(ctx) }()

	if port := webPort.port(); port > 0 {
		broadcaster := web.NewBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
		srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, g)
		go func() { errCh <- srv.Run(ctx) }()
	}

	debug.Section("Gimbal Running")
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("gimbal stopped: %v", err)
	}
	cancel()
}

// gimbalConfig maps the file configuration onto the controller constants.
func gimbalConfig(cfg *config.Config) gimbal.Config {
	return gimbal.Config{
		EncoderResolution: cfg.Defaults.EncoderResolution,
		MotorSpeedFactor:  cfg.Control.MotorSpeedFactor,
		MaxYawError:       cfg.Control.MaxYawErrorRad,
		YawMinimumRads:    cfg.Yaw.MinErrorRad,
		PitchMinimumRads:  cfg.Pitch.MinErrorRad,
		MaxYawSpeed:       cfg.Yaw.MaxSpeed,
		MinYawSpeed:       cfg.Yaw.MinSpeed,
		MaxPitchSpeed:     cfg.Pitch.MaxSpeed,
		MinPitchSpeed:     cfg.Pitch.MinSpeed,
		YawScale:          cfg.Yaw.Scale,
		PitchScale:        cfg.Pitch.Scale,
		GravityScalar:     cfg.Control.GravityScalar,
		LevelAngle:        cfg.Control.LevelAngleRad,
		StartingPitch:     cfg.Control.StartingPitchRad,
	}
}

// applyDebugOverride replaces the configured debug level when the flag
// was given. -1 means "use config value".
func applyDebugOverride(cfg *config.Config, level int) error {
	if level == -1 {
		return nil
	}
	if level < 0 || level > 4 {
		return fmt.Errorf("debug level must be 0-4, got %d", level)
	}
	cfg.Defaults.DebugLevel = level
	return nil
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
