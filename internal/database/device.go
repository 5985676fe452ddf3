package database

import (
	"keyboard-ai-backend/internal/models"
	"keyboard-ai-backend/pkg/logging"

	"gorm.io/gorm"
)

// GetDeviceByDeviceID gets a device by its client-generated device ID
func GetDeviceByDeviceID(deviceID string) (*models.Device, error) {
	var device models.Device
	err := DB.Where("device_id = ?", deviceID).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// GetDeviceByBillingID gets a device by its external billing identifier
func GetDeviceByBillingID(billingID string) (*models.Device, error) {
	var device models.Device
	err := DB.Where("billing_id = ?", billingID).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// RegisterDevice returns the existing device for deviceID or creates one with
// zero credits. Registration is idempotent: a second call is a no-op except
// that a new, different billingID is persisted.
// Uses a database transaction to serialize concurrent first registrations.
func RegisterDevice(deviceID, billingID string) (*models.Device, error) {
	var device models.Device
	err := DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("device_id = ?", deviceID).First(&device).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				device = models.Device{
					DeviceID:  deviceID,
					BillingID: billingID,
				}
				return tx.Create(&device).Error
			}
			return err
		}

		if billingID != "" && billingID != device.BillingID {
			logging.Infof("Updating billing ID for device - device_id: %s", deviceID)
			device.BillingID = billingID
			return tx.Save(&device).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// SaveDevice persists a mutated device record
func SaveDevice(device *models.Device) error {
	return DB.Save(device).Error
}

// ConsumeDeviceCredit decrements the credit balance by one as a single
// conditional update. Pro devices and devices at zero are left untouched,
// so the balance can never go negative even under concurrent requests.
// Returns true when a credit was actually consumed.
func ConsumeDeviceCredit(deviceID string) (bool, error) {
	result := DB.Model(&models.Device{}).
		Where("device_id = ? AND is_pro = ? AND credits > 0", deviceID, false).
		UpdateColumn("credits", gorm.Expr("credits - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetDevicePro sets the Pro flag for the given device
func SetDevicePro(deviceID string, isPro bool) error {
	return DB.Model(&models.Device{}).
		Where("device_id = ?", deviceID).
		Update("is_pro", isPro).Error
}
