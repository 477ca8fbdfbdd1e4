package container

import (
	app "moldscan/internal/application"
	"moldscan/internal/domain/port"
)

type Container struct {
	CalibrationService *app.CalibrationService
	InspectionService  *app.InspectionService
	Settings           port.SettingsRepository
	Baselines          port.BaselineRepository
}

func New(
	cameras port.CameraProvider,
	detector port.DefectDetector,
	baselines port.BaselineRepository,
	settings port.SettingsRepository,
	trigger port.HardwareTrigger,
	indicators port.IndicatorProvider,
	results port.ResultSink,
) *Container {
	calibrationService := app.NewCalibrationService(cameras, baselines, settings)
	inspectionService := app.NewInspectionService(cameras, detector, baselines, settings, trigger, indicators, results)

	return &Container{
		CalibrationService: calibrationService,
		InspectionService:  inspectionService,
		Settings:           settings,
		Baselines:          baselines,
	}
}
