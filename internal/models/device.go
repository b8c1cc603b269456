package models

import "github.com/Pranavsr23/PetalPost/internal/store"

// Device is one registered push target under `users/{uid}/devices`.
// Registration is the mobile client's job; this core only reads tokens.
type Device struct {
	FCMToken string `json:"fcmToken"`
}

func DeviceFromDoc(d store.Doc) Device {
	return Device{FCMToken: d.String("fcmToken")}
}
