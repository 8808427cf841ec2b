package config

type WorkerKeyStruct struct {
	PersistAnswersQueue       string
	DispatchCertificatesQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:       "persist_answers_queue",
	DispatchCertificatesQueue: "dispatch_certificates_queue",
}
